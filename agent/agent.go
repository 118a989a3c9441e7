package agent

import (
	"sync"

	"github.com/flowrig/flowrig/config"
	"github.com/flowrig/flowrig/logger"
	"github.com/flowrig/flowrig/repository"
	"github.com/flowrig/flowrig/rest"
	"github.com/flowrig/flowrig/systemapi"
)

// Agent wires the host process together: flow repository, system api and the
// http surface.
type Agent struct {
	Config       config.Config
	repo         repository.FlowRepository
	api          systemapi.API
	httpServer   *rest.Server
	shutdown     bool
	shutdownLock sync.Mutex
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config: conf,
	}
	setup := []func() error{
		a.setupRepository,
		a.setupSystemApi,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupRepository() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		a.repo = repository.NewRedisFlowRepository(repository.RedisConfig{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
		})
	default:
		a.repo = repository.NewInMemoryFlowRepository()
	}
	return nil
}

func (a *Agent) setupSystemApi() error {
	var speaker systemapi.Speaker = &systemapi.NoopSpeaker{}
	if a.Config.SpeechCommand != "" {
		speaker = &systemapi.CommandSpeaker{Command: a.Config.SpeechCommand}
	}
	a.api = systemapi.NewDefaultAPI(systemapi.Config{
		OpenAIKey: a.Config.OpenAIKey,
		ChatModel: a.Config.ChatModel,
		Speaker:   speaker,
	})
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.repo, a.api)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server stopped")
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	return a.httpServer.Stop()
}
