package release

import "strings"

// Config holds release-generation defaults for this instance.
type Config struct {
	// Namespace is the id-issuing namespace (0 for international).
	Namespace int `mapstructure:"namespace" default:"0"`
	// ModuleID is the default module for newly authored content.
	ModuleID string `mapstructure:"module_id" default:"900000000000207008"`
	// ModelComponentModuleID owns concept-model content.
	ModelComponentModuleID string `mapstructure:"model_component_module_id" default:"900000000000012004"`
	// ModelConceptIDs is a comma-separated list of concept-model
	// component ids whose referencing rows move to the model module.
	ModelConceptIDs string `mapstructure:"model_concept_ids" default:""`
	// MaxRetries bounds retries of one file's generation step on
	// transient failures.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
}

// ModelConcepts returns the parsed model concept id list.
func (c Config) ModelConcepts() []string {
	if c.ModelConceptIDs == "" {
		return nil
	}
	parts := strings.Split(c.ModelConceptIDs, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
