package dto

import "github.com/finflowhq/finflow_backend/internal/core/domain"

// SagaStatusResponse is the externally observable saga state.
type SagaStatusResponse struct {
	SagaID      string   `json:"sagaId"`
	Status      string   `json:"status"`
	CurrentStep int      `json:"currentStep"`
	Errors      []string `json:"errors"`
}

// ToSagaStatusResponse converts a domain.SagaInstance to its status view.
func ToSagaStatusResponse(s *domain.SagaInstance) SagaStatusResponse {
	errs := s.Errors
	if errs == nil {
		errs = []string{}
	}
	return SagaStatusResponse{
		SagaID:      s.SagaID,
		Status:      string(s.Status),
		CurrentStep: s.CurrentStep,
		Errors:      errs,
	}
}
