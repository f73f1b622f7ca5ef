package datasets

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "c19pulse/internal/errors"
)

// Registry holds dataset definitions in registration order
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]Definition
	order    []string
	validate *validator.Validate
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]Definition),
		order:    make([]string, 0),
		validate: validator.New(),
	}
}

// Register adds a definition. Names must be unique.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return apperrors.NewValidationError("dataset name cannot be empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return apperrors.NewValidationError(fmt.Sprintf("dataset %s already registered", def.Name), nil)
	}

	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Get retrieves a definition by name
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.defs[name]
	if !exists {
		return Definition{}, apperrors.NewNotFoundError("dataset " + name)
	}
	return def, nil
}

// Has checks if a dataset is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.defs[name]
	return exists
}

// List returns all definitions in registration order
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Names returns the registered names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered datasets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}

// Validate checks every definition's fields and walks its derive spec
// against the projected columns, so a spec naming an undefined column is
// reported before anything is fetched. When both hospitalizations and
// vaccines are registered the joined rate spec is checked as well.
func (r *Registry) Validate() error {
	defs := r.List()
	outputs := make(map[string][]string, len(defs))

	for _, def := range defs {
		if err := r.validate.Struct(def); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("dataset %s is invalid", def.Name), err).
				WithContext("dataset", def.Name)
		}
		cols, err := def.OutputColumns()
		if err != nil {
			return fmt.Errorf("dataset %s: %w", def.Name, err)
		}
		if err := checkColumns(def, cols); err != nil {
			return err
		}
		outputs[def.Name] = cols
	}

	hosp, okHosp := outputs[Hospitalizations]
	vacc, okVacc := outputs[Vaccines]
	if okHosp && okVacc {
		joined := append(append([]string{}, hosp...), vacc...)
		if err := HospitalizationRates().Validate(joined); err != nil {
			return fmt.Errorf("hospitalization rates: %w", err)
		}
	}
	return nil
}

// checkColumns makes sure trend and breakdown columns exist after
// derivation and text columns were projected.
func checkColumns(def Definition, derived []string) error {
	present := make(map[string]bool, len(derived))
	for _, c := range derived {
		present[c] = true
	}
	projected := make(map[string]bool, len(def.Columns))
	for _, c := range def.Columns {
		projected[c] = true
	}

	for _, c := range def.TextColumns {
		if !projected[c] {
			return apperrors.NewDependencyError(def.Name+" text columns", c)
		}
	}
	for _, c := range def.Trend {
		if !present[c] {
			return apperrors.NewDependencyError(def.Name+" trend", c)
		}
	}
	for _, b := range def.Breakdowns {
		if !present[b.Column] {
			return apperrors.NewDependencyError(def.Name+" breakdown "+b.Name, b.Column)
		}
	}
	return nil
}
