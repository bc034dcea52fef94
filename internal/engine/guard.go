package engine

import "fmt"

// recoverStage turns a panic raised while stage was running into a
// PipelineError. It must be deferred directly.
func recoverStage(stage *string, out *string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	name := "unknown"
	if stage != nil && *stage != "" {
		name = *stage
	}
	var cause error
	switch v := r.(type) {
	case error:
		cause = fmt.Errorf("panic: %w", v)
	default:
		cause = fmt.Errorf("panic: %v", v)
	}
	if out != nil {
		*out = ""
	}
	if err != nil {
		*err = &PipelineError{Stage: name, Err: cause}
	}
}
