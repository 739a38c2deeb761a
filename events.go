package scenelink

// Event names exchanged between the editor host and the runtime. Responses
// use the request's event name plus ResponseSuffix.
const (
	// host -> runtime
	EventRequestFocusElement   = "request-focus-element"
	EventRequestBlurElement    = "request-blur-element"
	EventRequestSetElementProp = "request-set-element-prop"
	EventRequestPersistProp    = "request-persist-element-prop"
	EventRequestResetProp      = "request-reset-element-prop"
	EventRequestDeleteElement  = "request-delete-element"
	EventRequestRestoreElement = "request-restore-element"
	EventRequestResetScene     = "request-reset-scene"
	EventRequestElementValue   = "request-element-value"
	EventControlTriggered      = "control-triggered"

	// runtime -> host
	EventElementFocus   = "element-focus"
	EventElementBlur    = "element-blur"
	EventElementSetProp = "element-set-prop"
	EventFileReloaded   = "file-reloaded"
)

// ResponseSuffix is appended to an event name to form its response name.
const ResponseSuffix = "Response"

// ResponseName returns the response event name for event.
func ResponseName(event string) string {
	return event + ResponseSuffix
}

// ElementRef addresses an element on the wire.
type ElementRef struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	OwnerID string `json:"ownerId,omitempty"`
}

// RefOf builds an ElementRef for id.
func RefOf(id Identity, owner string) ElementRef {
	return ElementRef{Path: id.Path, Line: id.Line, Column: id.Column, OwnerID: owner}
}

// Identity returns the referenced Identity.
func (r ElementRef) Identity() Identity {
	return Identity{Path: r.Path, Line: r.Line, Column: r.Column}
}

// Key returns the override store key for the reference.
func (r ElementRef) Key() Key {
	return r.Identity().Key(r.OwnerID)
}

// PropPayload carries a prop write, a reset or a value query.
type PropPayload struct {
	ElementRef
	PropName  string `json:"propName"`
	PropValue any    `json:"propValue,omitempty"`
}

// FocusPayload is sent with element-focus.
type FocusPayload struct {
	ElementRef
	Name   string       `json:"name"`
	Space  Space        `json:"space"`
	Mode   string       `json:"transformMode"`
	Caps   Capabilities `json:"capabilities"`
	Target ElementRef   `json:"target"`
}

// ControlPayload is sent with control-triggered. ID names the control:
// "translate", "rotate", "scale" or "blur".
type ControlPayload struct {
	ID string `json:"id"`
}

// ValuePayload answers request-element-value.
type ValuePayload struct {
	Value any  `json:"value"`
	Found bool `json:"found"`
}

// ReloadPayload is sent with file-reloaded.
type ReloadPayload struct {
	Path string `json:"path"`
}
