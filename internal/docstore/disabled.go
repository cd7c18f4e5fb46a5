package docstore

import "context"

// Disabled is the degraded mode used when no Firestore credentials are
// configured. The app stays fully usable on local state; every cloud
// operation reports ErrDisabled and callers quietly skip persistence.
type Disabled struct{}

func NewDisabled() *Disabled { return &Disabled{} }

func (Disabled) Get(context.Context, string, any) (bool, error) { return false, ErrDisabled }

func (Disabled) Set(context.Context, string, any) error { return ErrDisabled }

func (Disabled) Update(context.Context, string, map[string]any) error { return ErrDisabled }

func (Disabled) Delete(context.Context, string) error { return ErrDisabled }

func (Disabled) Batch(context.Context, []WriteOp) error { return ErrDisabled }

func (Disabled) Query(context.Context, Query) ([]Doc, error) { return nil, ErrDisabled }

func (Disabled) Subscribe(context.Context, Query, func([]Doc)) (func(), error) {
	return nil, ErrDisabled
}

func (Disabled) RunTransaction(context.Context, func(Tx) error) error { return ErrDisabled }
