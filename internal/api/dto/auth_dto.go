package dto

// TokenRequest exchanges an API key for a bearer token.
type TokenRequest struct {
	ClientID  string `json:"client_id"`
	ClientKey string `json:"client_key"`
}

// SetRuleEnabledRequest payload.
type SetRuleEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}
