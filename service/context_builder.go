package service

import (
	"strings"

	"github.com/layer-3/captchauth/core"
)

// FieldNames names the submitted form fields a login reads
type FieldNames struct {
	Identifier string `yaml:"identifier"`
	Secret     string `yaml:"secret"`
	Challenge  string `yaml:"challenge"`
}

// DefaultFieldNames are the form field names used when none are configured
var DefaultFieldNames = FieldNames{
	Identifier: "username",
	Secret:     "password",
	Challenge:  "captcha",
}

// ContextBuilder turns raw request data into an AuthContext
type ContextBuilder struct {
	fields FieldNames
}

// NewContextBuilder creates a builder; empty names fall back to the defaults
func NewContextBuilder(fields FieldNames) ContextBuilder {
	if fields.Identifier == "" {
		fields.Identifier = DefaultFieldNames.Identifier
	}
	if fields.Secret == "" {
		fields.Secret = DefaultFieldNames.Secret
	}
	if fields.Challenge == "" {
		fields.Challenge = DefaultFieldNames.Challenge
	}
	return ContextBuilder{fields: fields}
}

// Fields returns the configured field names
func (b ContextBuilder) Fields() FieldNames {
	return b.fields
}

// Build captures the attempt's data. It only reads raw; the secret is taken
// verbatim while the identifier and challenge answer are trimmed.
func (b ContextBuilder) Build(raw core.RawRequest) core.AuthContext {
	return core.AuthContext{
		Identifier:      strings.TrimSpace(raw.Fields[b.fields.Identifier]),
		Secret:          raw.Fields[b.fields.Secret],
		ChallengeAnswer: strings.TrimSpace(raw.Fields[b.fields.Challenge]),
		SessionKey:      raw.SessionKey,
		OriginAddress:   raw.OriginAddress,
		ReceivedAt:      raw.ReceivedAt,
	}
}
