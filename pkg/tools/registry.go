package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

type entry struct {
	adapter    Adapter
	descriptor Descriptor
	schema     *gojsonschema.Schema
}

// Registry is the set of tools available to the model. It is assembled once by
// NewRegistry and never changes afterwards, so it can be shared between chats.
type Registry struct {
	cfg     Config
	entries map[string]entry
	names   []string
}

// NewRegistry builds a registry from adapters. Names must be unique and non-empty.
func NewRegistry(cfg Config, adapters ...Adapter) (*Registry, error) {
	r := &Registry{cfg: cfg, entries: map[string]entry{}}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		d := a.Descriptor()
		if d.Name == "" {
			return nil, errors.New("tool name cannot be empty")
		}
		if _, ok := r.entries[d.Name]; ok {
			return nil, errors.Errorf("tool %q registered twice", d.Name)
		}
		e := entry{adapter: a, descriptor: d}
		if d.Parameters != nil {
			b, err := json.Marshal(d.Parameters)
			if err != nil {
				return nil, errors.Wrapf(err, "marshal schema of %s", d.Name)
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
			if err != nil {
				return nil, errors.Wrapf(err, "compile schema of %s", d.Name)
			}
			e.schema = schema
		}
		r.entries[d.Name] = e
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) Names() []string {
	return append([]string{}, r.names...)
}

func (r *Registry) Len() int {
	return len(r.names)
}

// Descriptors returns the descriptors of the allowed tools, sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	ret := make([]Descriptor, 0, len(r.names))
	for _, n := range r.names {
		if !r.allowed(n) {
			continue
		}
		ret = append(ret, r.entries[n].descriptor)
	}
	return ret
}

func (r *Registry) allowed(name string) bool {
	if len(r.cfg.Allowed) == 0 {
		return true
	}
	for _, p := range r.cfg.Allowed {
		ok, err := glob.Match(p, name)
		if err != nil {
			log.Warn().Err(err).Str("pattern", p).Msg("tools: bad allow pattern")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Invoke runs a single call. Unknown tools, invalid arguments and adapter
// failures all come back as "Error:" text.
func (r *Registry) Invoke(ctx context.Context, call conversation.ToolCall) string {
	e, ok := r.entries[call.Name]
	if !ok {
		log.Warn().Str("tool", call.Name).Msg("tools: unknown tool requested")
		return ErrorResult("unknown tool %q", call.Name)
	}
	if !r.allowed(call.Name) {
		return ErrorResult("tool %q is not allowed", call.Name)
	}

	args := call.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	if r.cfg.Validate && e.schema != nil {
		if msg := validate(e.schema, args); msg != "" {
			return ErrorResult("invalid arguments for %s: %s", call.Name, msg)
		}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result := e.adapter.Invoke(ctx, args)
	if ctx.Err() == context.DeadlineExceeded && !IsError(result) {
		result = ErrorResult("%s timed out", call.Name)
	}
	log.Debug().
		Str("tool", call.Name).
		Str("call_id", call.ID).
		Dur("duration", time.Since(start)).
		Bool("error", IsError(result)).
		Msg("tools: invoked")
	return result
}

func validate(schema *gojsonschema.Schema, args json.RawMessage) string {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return err.Error()
	}
	if res.Valid() {
		return ""
	}
	var msgs []string
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}
