package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vk/modforge/internal/task"
)

// Validate resolves every call in the tree up front so that a missing tool
// aborts the run before anything executes.
func (r *Registry) Validate(root task.Task) error {
	var missing []string
	for _, c := range task.Calls(root) {
		if _, _, err := r.Lookup(c.Name()); err != nil && !slices.Contains(missing, c.Name()) {
			missing = append(missing, c.Name())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("registry validation failed: %w:\n- %s", ErrToolNotFound, strings.Join(missing, "\n- "))
}
