package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/rs/zerolog/log"
)

// FuncAdapter wraps a typed Go function as an Adapter. The input type is
// reflected into the descriptor's parameter schema.
type FuncAdapter[In any] struct {
	descriptor Descriptor
	fn         func(ctx context.Context, in In) (string, error)
}

var _ Adapter = (*FuncAdapter[struct{}])(nil)

// NewFuncAdapter creates an adapter. name is normalized to snake_case.
func NewFuncAdapter[In any](
	name, description string,
	fn func(ctx context.Context, in In) (string, error),
) *FuncAdapter[In] {
	var zero In
	return &FuncAdapter[In]{
		descriptor: Descriptor{
			Name:        strcase.ToSnake(name),
			Description: strings.TrimSpace(description),
			Parameters:  SchemaFor(zero),
		},
		fn: fn,
	}
}

func (f *FuncAdapter[In]) Descriptor() Descriptor {
	return f.descriptor
}

func (f *FuncAdapter[In]) Invoke(ctx context.Context, args json.RawMessage) (result string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", f.descriptor.Name).Interface("panic", r).Msg("tools: adapter panicked")
			result = ErrorResult("%s failed: %v", f.descriptor.Name, r)
		}
	}()

	var in In
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &in); err != nil {
			return ErrorResult("could not parse arguments for %s: %v", f.descriptor.Name, err)
		}
	}

	out, err := f.fn(ctx, in)
	if err != nil {
		if IsError(err.Error()) {
			return err.Error()
		}
		return ErrorResult("%s", err.Error())
	}
	return out
}

func (f *FuncAdapter[In]) String() string {
	return fmt.Sprintf("FuncAdapter(%s)", f.descriptor.Name)
}
