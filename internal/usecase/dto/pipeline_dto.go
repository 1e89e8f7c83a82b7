package dto

// EnqueueRequest - conversion request; either overlay, or region and stage
type EnqueueRequest struct {
	Region  string `json:"region,omitempty" validate:"required_with=Stage,excluded_with=Overlay"`
	Stage   string `json:"stage,omitempty" validate:"required_with=Region,excluded_with=Overlay"`
	Overlay string `json:"overlay,omitempty" validate:"required_without=Stage"`
}

// RunsQuery - GET /runs parameters
type RunsQuery struct {
	Limit int `validate:"omitempty,min=1,max=100"`
}
