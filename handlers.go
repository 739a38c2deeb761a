package scenelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var errNoPropName = errors.New("scenelink: missing propName")

func decode[T any](event string, data json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", event, err)
	}
	return v, nil
}

// propHandler decodes a PropPayload and applies fn to the store.
func propHandler(event string, fn func(p PropPayload)) Handler {
	return func(_ context.Context, data json.RawMessage) (any, error) {
		p, err := decode[PropPayload](event, data)
		if err != nil {
			return nil, err
		}
		if p.PropName == "" {
			return nil, fmt.Errorf("%s: %w", event, errNoPropName)
		}
		fn(p)
		return nil, nil
	}
}

// RegisterRuntimeHandlers installs the runtime side of the protocol on b:
// store writes happen directly on the bridge goroutine, while selection and
// mode changes are posted to the scene's frame goroutine. The returned
// function removes every handler.
func RegisterRuntimeHandlers(b *Bridge, s *Scene) func() {
	store := s.Store()

	return Compose(
		b.On(EventRequestFocusElement, func(_ context.Context, data json.RawMessage) (any, error) {
			ref, err := decode[ElementRef](EventRequestFocusElement, data)
			if err != nil {
				return nil, err
			}
			s.Post(func() { s.SelectIdentity(ref.Identity()) })
			return nil, nil
		}),
		b.On(EventRequestBlurElement, func(context.Context, json.RawMessage) (any, error) {
			s.Post(s.Blur)
			return nil, nil
		}),
		b.On(EventRequestSetElementProp, propHandler(EventRequestSetElementProp, func(p PropPayload) {
			store.SetProp(p.Key(), p.PropName, p.PropValue)
		})),
		b.On(EventRequestPersistProp, propHandler(EventRequestPersistProp, func(p PropPayload) {
			store.PersistProp(p.Key(), p.PropName, p.PropValue)
		})),
		b.On(EventRequestResetProp, propHandler(EventRequestResetProp, func(p PropPayload) {
			store.ResetProp(p.Key(), p.PropName)
		})),
		b.On(EventRequestDeleteElement, func(_ context.Context, data json.RawMessage) (any, error) {
			ref, err := decode[ElementRef](EventRequestDeleteElement, data)
			if err != nil {
				return nil, err
			}
			store.SetDeleted(ref.Key(), true)
			return nil, nil
		}),
		b.On(EventRequestRestoreElement, func(_ context.Context, data json.RawMessage) (any, error) {
			ref, err := decode[ElementRef](EventRequestRestoreElement, data)
			if err != nil {
				return nil, err
			}
			store.SetDeleted(ref.Key(), false)
			return nil, nil
		}),
		b.On(EventRequestResetScene, func(context.Context, json.RawMessage) (any, error) {
			store.Reset()
			return nil, nil
		}),
		b.On(EventRequestElementValue, func(_ context.Context, data json.RawMessage) (any, error) {
			p, err := decode[PropPayload](EventRequestElementValue, data)
			if err != nil {
				return nil, err
			}
			if p.PropName == "" {
				return nil, fmt.Errorf("%s: %w", EventRequestElementValue, errNoPropName)
			}
			v, ok := store.Value(p.Key(), p.PropName)
			return ValuePayload{Value: v, Found: ok}, nil
		}),
		b.On(EventControlTriggered, func(_ context.Context, data json.RawMessage) (any, error) {
			c, err := decode[ControlPayload](EventControlTriggered, data)
			if err != nil {
				return nil, err
			}
			if c.ID == "blur" {
				s.Post(s.Blur)
				return nil, nil
			}
			mode, err := ParseTransformMode(c.ID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", EventControlTriggered, err)
			}
			s.Post(func() { s.SetTransformMode(mode) })
			return nil, nil
		}),
	)
}
