// Package tools holds the closed catalog of functions the model may invoke.
// Every callable operation is registered here with its declaration; the
// dispatch loop refuses anything outside the catalog.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// Reserved function names. The model may call these, but they are intercepted
// by the dispatch loop and never executed through the catalog.
const (
	ReservedIgnorePrompt = "ignorePrompt"
	ReservedAskUser      = "askUser"
)

// Func executes one catalog operation with the model-supplied arguments.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Entry pairs a function declaration with its executable body.
type Entry struct {
	Decl domain.FunctionDeclaration
	Run  Func
}

// Catalog is the registry of model-callable functions.
type Catalog struct {
	entries  map[string]Entry
	reserved []domain.FunctionDeclaration
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// Register adds an executable operation. Reserved names and duplicates are
// rejected so a tool can never shadow the dispatch loop's own handling.
func (c *Catalog) Register(decl domain.FunctionDeclaration, fn Func) error {
	if decl.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if IsReserved(decl.Name) {
		return fmt.Errorf("register tool %q: name is reserved", decl.Name)
	}
	if _, exists := c.entries[decl.Name]; exists {
		return fmt.Errorf("register tool %q: already registered", decl.Name)
	}
	if fn == nil {
		return fmt.Errorf("register tool %q: nil func", decl.Name)
	}
	c.entries[decl.Name] = Entry{Decl: decl, Run: fn}
	return nil
}

// RegisterReserved declares a reserved function to the model without an
// executable body.
func (c *Catalog) RegisterReserved(decl domain.FunctionDeclaration) error {
	if !IsReserved(decl.Name) {
		return fmt.Errorf("register reserved %q: not a reserved name", decl.Name)
	}
	c.reserved = append(c.reserved, decl)
	return nil
}

// Lookup returns the executable entry for name. Reserved names are not
// executable and report false.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Declarations returns every declaration, executable and reserved, in a
// stable order for the model request.
func (c *Catalog) Declarations() []domain.FunctionDeclaration {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	decls := make([]domain.FunctionDeclaration, 0, len(c.entries)+len(c.reserved))
	for _, name := range names {
		decls = append(decls, c.entries[name].Decl)
	}
	decls = append(decls, c.reserved...)
	return decls
}

// IsReserved reports whether name is handled by the dispatch loop itself.
func IsReserved(name string) bool {
	return name == ReservedIgnorePrompt || name == ReservedAskUser
}
