package flwor

import (
	"context"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// TuplePull is a pull-mode tuple stream. NextTuple advances to the next tuple
// and binds its variables in dc; it returns false once the stream is
// exhausted. Close releases the stream and everything upstream of it; the
// stream must not be used afterwards.
type TuplePull interface {
	NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error)
	Close()
}

// TuplePush is a push-mode tuple stream. ProcessTuple consumes the tuple
// currently bound in dc. Close signals the end of the stream: buffering
// streams flush their output, then close their destination.
type TuplePush interface {
	ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error
	Close(ctx context.Context, dc *expr.DynamicContext) error
}

// Receiver consumes the items produced by a push-mode evaluation.
type Receiver interface {
	Receive(ctx context.Context, it item.Item) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, it item.Item) error

func (f ReceiverFunc) Receive(ctx context.Context, it item.Item) error {
	return f(ctx, it)
}

// singularity is the pull stream at the head of every pipeline: exactly one
// empty tuple.
type singularity struct {
	done bool
}

func (s *singularity) NextTuple(context.Context, *expr.DynamicContext) (bool, error) {
	if s.done {
		return false, nil
	}
	s.done = true
	return true, nil
}

func (s *singularity) Close() {
	s.done = true
}

// returnPush is the sink of a push pipeline: it evaluates the return
// expression for each tuple and passes the items to the receiver.
type returnPush struct {
	ret expr.Expression
	out Receiver
}

func (r *returnPush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	it, err := r.ret.Iterate(ctx, dc)
	if err != nil {
		return evalerr.Wrap(err, "return", r.ret.String())
	}
	defer it.Stop()
	for {
		v, err := it.Next(ctx)
		if err != nil {
			if sequence.IsDone(err) {
				return nil
			}
			return evalerr.Wrap(err, "return", r.ret.String())
		}
		if err := r.out.Receive(ctx, v); err != nil {
			return err
		}
	}
}

func (r *returnPush) Close(context.Context, *expr.DynamicContext) error {
	return nil
}
