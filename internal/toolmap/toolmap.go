// Package toolmap translates between the three vocabularies used for the four
// integrated tools: the brand-facing module id shown in the dashboard, the
// third-party provider id doing the work, and the enum persisted in Postgres.
//
// The tables are immutable package values and safe for concurrent reads.
package toolmap

import (
	"errors"
	"fmt"
	"strings"

	appErr "github.com/devflowhub/engine/pkg/errors"
)

// ModuleID is the brand-facing identifier shown in the UI.
type ModuleID string

const (
	Editor   ModuleID = "editor"
	Sandbox  ModuleID = "sandbox"
	UIStudio ModuleID = "ui-studio"
	Deployer ModuleID = "deployer"
)

// ProviderID identifies the third-party tool backing a module.
type ProviderID string

const (
	Cursor ProviderID = "cursor"
	Replit ProviderID = "replit"
	V0     ProviderID = "v0"
	Bolt   ProviderID = "bolt"
)

// StorageEnum is the form persisted in the record store.
type StorageEnum string

const (
	StorageEditor   StorageEnum = "EDITOR"
	StorageSandbox  StorageEnum = "SANDBOX"
	StorageUIStudio StorageEnum = "UI_STUDIO"
	StorageDeployer StorageEnum = "DEPLOYER"
)

// ErrUnresolvedIdentifier is wrapped by Resolve when input matches no vocabulary.
var ErrUnresolvedIdentifier = errors.New("unresolved tool identifier")

// Tool carries every identifier of one integration.
type Tool struct {
	Module   ModuleID    `json:"module"`
	Provider ProviderID  `json:"provider"`
	Storage  StorageEnum `json:"storage"`
	Label    string      `json:"label"`
}

// order is the display order; each row is one 1:1:1 correspondence.
var order = []Tool{
	{Module: Editor, Provider: Cursor, Storage: StorageEditor, Label: "Editor"},
	{Module: Sandbox, Provider: Replit, Storage: StorageSandbox, Label: "Sandbox"},
	{Module: UIStudio, Provider: V0, Storage: StorageUIStudio, Label: "UI Studio"},
	{Module: Deployer, Provider: Bolt, Storage: StorageDeployer, Label: "Deployer"},
}

var (
	moduleToProvider  = map[ModuleID]ProviderID{}
	providerToModule  = map[ProviderID]ModuleID{}
	providerToStorage = map[ProviderID]StorageEnum{}
	storageToProvider = map[StorageEnum]ProviderID{}
	moduleLabel       = map[ModuleID]string{}
)

func init() {
	for _, t := range order {
		moduleToProvider[t.Module] = t.Provider
		providerToModule[t.Provider] = t.Module
		providerToStorage[t.Provider] = t.Storage
		storageToProvider[t.Storage] = t.Provider
		moduleLabel[t.Module] = t.Label
	}
}

// normalize lower-cases input and folds the storage spelling (UI_STUDIO) onto
// the module spelling (ui-studio).
func normalize(input string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(input)), "_", "-")
}

// ToModuleID resolves a module id, provider id or storage enum to a module id.
func ToModuleID(input string) (ModuleID, bool) {
	key := normalize(input)
	if _, ok := moduleToProvider[ModuleID(key)]; ok {
		return ModuleID(key), true
	}
	if m, ok := providerToModule[ProviderID(key)]; ok {
		return m, true
	}
	return "", false
}

// ToProviderID resolves a provider id, module id or storage enum to a provider id.
func ToProviderID(input string) (ProviderID, bool) {
	key := normalize(input)
	if _, ok := providerToModule[ProviderID(key)]; ok {
		return ProviderID(key), true
	}
	if p, ok := moduleToProvider[ModuleID(key)]; ok {
		return p, true
	}
	return "", false
}

// ToDBEnum resolves input to the persisted enum by way of its provider.
func ToDBEnum(input string) (StorageEnum, bool) {
	p, ok := ToProviderID(input)
	if !ok {
		return "", false
	}
	e, ok := providerToStorage[p]
	return e, ok
}

// ProviderFromDBEnum is the inverse of the provider-to-storage table.
func ProviderFromDBEnum(e StorageEnum) (ProviderID, bool) {
	p, ok := storageToProvider[e]
	return p, ok
}

// FromDBEnum maps a persisted enum back to its module id.
func FromDBEnum(e StorageEnum) (ModuleID, bool) {
	p, ok := ProviderFromDBEnum(e)
	if !ok {
		return "", false
	}
	return providerToModule[p], true
}

// BrandLabelFromAny returns the brand label for any spelling of a tool. When the
// input cannot be resolved it is returned unchanged; callers must not read that
// as a successful mapping.
func BrandLabelFromAny(input string) string {
	m, ok := ToModuleID(input)
	if !ok {
		return input
	}
	return moduleLabel[m]
}

// Resolve returns every identifier for input, or an invalid-input error
// wrapping ErrUnresolvedIdentifier.
func Resolve(input string) (Tool, error) {
	m, ok := ToModuleID(input)
	if !ok {
		return Tool{}, appErr.Wrap(ErrUnresolvedIdentifier, appErr.CodeInvalid, fmt.Sprintf("unknown tool %q", input)).
			WithMeta("input", input)
	}
	p := moduleToProvider[m]
	return Tool{Module: m, Provider: p, Storage: providerToStorage[p], Label: moduleLabel[m]}, nil
}

// All returns the four tools in display order.
func All() []Tool {
	out := make([]Tool, len(order))
	copy(out, order)
	return out
}

// ProviderFor returns the provider backing m.
func ProviderFor(m ModuleID) (ProviderID, bool) {
	p, ok := moduleToProvider[m]
	return p, ok
}
