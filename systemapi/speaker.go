package systemapi

import (
	"context"
	"os/exec"

	"github.com/flowrig/flowrig/logger"
)

// CommandSpeaker shells out to a TTS command (e.g. "say" on macOS, "espeak")
// passing the text as the final argument.
type CommandSpeaker struct {
	Command string
	Args    []string
}

var _ Speaker = new(CommandSpeaker)

func (s *CommandSpeaker) Say(ctx context.Context, text string) error {
	args := append(append([]string{}, s.Args...), text)
	return exec.CommandContext(ctx, s.Command, args...).Run()
}

// NoopSpeaker logs the text instead of speaking it. Used when no TTS command is
// configured but flows still contain tts nodes.
type NoopSpeaker struct{}

var _ Speaker = new(NoopSpeaker)

func (s *NoopSpeaker) Say(ctx context.Context, text string) error {
	logger.Info("tts: " + text)
	return nil
}
