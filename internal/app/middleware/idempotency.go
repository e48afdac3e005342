package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"skirent/internal/app/commands"
)

// IdempotentCommand opts a command into replay protection. A replayed key
// returns the recorded outcome, success or failure, without re-executing.
type IdempotentCommand interface {
	commands.Command
	// IdempotencyKey is the client-supplied replay key; empty disables the
	// protection for this dispatch.
	IdempotencyKey() string
	// ResultPrototype returns a pointer the recorded payload decodes into;
	// it must match the handler's result type.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

// ResultCodec serializes command results into the idempotency record.
type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency is the outermost command middleware: a recognized key is
// answered from the record before any transaction is opened. A nil codec
// defaults to JSON.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		call := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return call(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(codec, rec, idCmd)
			}
			result, err := call(ctx, cmd)
			if saveErr := record(ctx, store, codec, key, result, err); saveErr != nil {
				if err != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, saveErr
			}
			if err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

// replay reconstructs the first dispatch's outcome from the stored record.
func replay(codec ResultCodec, rec IdempotencyRecord, cmd IdempotentCommand) (any, error) {
	if rec.Error != "" {
		return nil, errors.New(rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return normalizePrototype(proto), nil
}

// record persists the outcome, error string or encoded payload, under the
// replay key.
func record(ctx context.Context, store IdempotencyStore, codec ResultCodec, key string, result any, dispatchErr error) error {
	rec := IdempotencyRecord{
		Key:        key,
		OccurredAt: time.Now().UTC(),
	}
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
		return store.Save(ctx, rec)
	}
	if result != nil {
		payload, err := codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return store.Save(ctx, rec)
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
