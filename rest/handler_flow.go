package rest

import (
	"encoding/json"
	"net/http"

	"github.com/flowrig/flowrig/engine"
	"github.com/flowrig/flowrig/logger"
	"github.com/flowrig/flowrig/model"
	"github.com/flowrig/flowrig/repository"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ExecuteRequest struct {
	FlowId string         `json:"flowId,omitempty"`
	Flow   *model.Flow    `json:"flow,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
	NodeId string         `json:"nodeId,omitempty"`
}

func (s *Server) HandleSaveFlow(w http.ResponseWriter, r *http.Request) {
	var flow model.Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid flow definition")
		return
	}
	defer r.Body.Close()
	if flow.Id == "" {
		respondWithError(w, http.StatusBadRequest, "flow id is required")
		return
	}
	if err := s.repo.SaveFlow(flow); err != nil {
		logger.Error("error saving flow", zap.String("flow", flow.Id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error saving flow")
		return
	}
	respondOK(w, "flow saved")
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	flow, err := s.repo.GetFlowById(id)
	if err != nil {
		if err == repository.ErrFlowNotFound {
			respondWithError(w, http.StatusNotFound, "flow not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "error loading flow")
		return
	}
	respondWithJSON(w, http.StatusOK, flow)
}

func (s *Server) HandleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.repo.DeleteFlow(id); err != nil {
		respondWithError(w, http.StatusInternalServerError, "error deleting flow")
		return
	}
	respondOK(w, "flow deleted")
}

// HandleExecuteFlow runs a stored or inline flow synchronously and returns its
// ExecutionResult. The execution id is sent in the X-Execution-Id header before
// the run starts so a concurrent abort request can target it.
func (s *Server) HandleExecuteFlow(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid execute request")
		return
	}
	defer r.Body.Close()

	flow := req.Flow
	if flow == nil {
		if req.FlowId == "" {
			respondWithError(w, http.StatusBadRequest, "flowId or inline flow is required")
			return
		}
		stored, err := s.repo.GetFlowById(req.FlowId)
		if err != nil {
			if err == repository.ErrFlowNotFound {
				respondWithError(w, http.StatusNotFound, "flow not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "error loading flow")
			return
		}
		flow = stored
	}

	executionId := uuid.New().String()
	eng := engine.New(flow, s.api, engine.Options{Repository: s.repo})
	s.executions.add(executionId, eng)
	defer s.executions.remove(executionId)

	w.Header().Set("X-Execution-Id", executionId)
	logger.Info("executing flow", zap.String("flow", flow.Id), zap.String("execution", executionId))

	var res *model.ExecutionResult
	if req.NodeId != "" {
		res = eng.ExecuteFromNode(r.Context(), req.NodeId)
	} else {
		res = eng.Execute(r.Context(), req.Input, nil)
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (s *Server) HandleAbortExecution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.executions.abort(id) {
		respondWithError(w, http.StatusNotFound, "execution not found")
		return
	}
	respondOK(w, "abort requested")
}
