package dto

// AlertActionRequest carries the optional operator note attached to an
// acknowledge, resolve, or dismiss transition.
type AlertActionRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}
