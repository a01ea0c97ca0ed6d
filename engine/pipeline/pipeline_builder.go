package pipeline

import (
	"github.com/Carmen-Shannon/nucleus-go/common/log"
)

// PipelineBuilderOption is a functional option used to configure a GraphicsPipeline during construction.
type PipelineBuilderOption func(*graphicsPipeline)

// WithLogger sets the logger the pipeline reports creation and destruction to.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the pipeline's logger
func WithLogger(logger log.Log) PipelineBuilderOption {
	return func(p *graphicsPipeline) {
		if logger != nil {
			p.log = logger
		}
	}
}

// WithKey overrides the cache key taken from the shader.
//
// Parameters:
//   - key: the cache key
//
// Returns:
//   - PipelineBuilderOption: a function that sets the pipeline key
func WithKey(key string) PipelineBuilderOption {
	return func(p *graphicsPipeline) {
		p.key = key
	}
}
