package sequence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/openfga/flwor/internal/mocks"
	"github.com/openfga/flwor/pkg/sequence"
)

func TestConcat(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	tests := []struct {
		name           string
		setupIters     func(*gomock.Controller) (sequence.Iterator[string], sequence.Iterator[string])
		expectedValues []string
		expectedError  error
	}{
		{
			name: "should_concatenate_two_iterators",
			setupIters: func(ctrl *gomock.Controller) (sequence.Iterator[string], sequence.Iterator[string]) {
				iter1 := mocks.NewMockIterator[string](ctrl)
				iter1.EXPECT().Next(gomock.Any()).Return("a", nil)
				iter1.EXPECT().Next(gomock.Any()).Return("b", nil)
				iter1.EXPECT().Next(gomock.Any()).Return("", sequence.ErrIteratorDone)
				iter1.EXPECT().Stop().Times(1)

				iter2 := mocks.NewMockIterator[string](ctrl)
				iter2.EXPECT().Next(gomock.Any()).Return("c", nil)
				iter2.EXPECT().Next(gomock.Any()).Return("d", nil)
				iter2.EXPECT().Next(gomock.Any()).Return("", sequence.ErrIteratorDone)
				iter2.EXPECT().Stop().Times(1)

				return iter1, iter2
			},
			expectedValues: []string{"a", "b", "c", "d"},
			expectedError:  sequence.ErrIteratorDone,
		},
		{
			name: "should_handle_empty_first_iterator",
			setupIters: func(ctrl *gomock.Controller) (sequence.Iterator[string], sequence.Iterator[string]) {
				iter1 := mocks.NewMockIterator[string](ctrl)
				iter1.EXPECT().Next(gomock.Any()).Return("", sequence.ErrIteratorDone)
				iter1.EXPECT().Stop().Times(1)

				iter2 := mocks.NewMockIterator[string](ctrl)
				iter2.EXPECT().Next(gomock.Any()).Return("a", nil)
				iter2.EXPECT().Next(gomock.Any()).Return("", sequence.ErrIteratorDone)
				iter2.EXPECT().Stop().Times(1)

				return iter1, iter2
			},
			expectedValues: []string{"a"},
			expectedError:  sequence.ErrIteratorDone,
		},
		{
			name: "should_propagate_error_from_first_iterator",
			setupIters: func(ctrl *gomock.Controller) (sequence.Iterator[string], sequence.Iterator[string]) {
				iter1 := mocks.NewMockIterator[string](ctrl)
				iter1.EXPECT().Next(gomock.Any()).Return("a", nil)
				iter1.EXPECT().Next(gomock.Any()).Return("", errors.New("boom"))
				iter1.EXPECT().Stop().Times(1)

				iter2 := mocks.NewMockIterator[string](ctrl)
				iter2.EXPECT().Stop().Times(1)

				return iter1, iter2
			},
			expectedValues: []string{"a"},
			expectedError:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			iter1, iter2 := tt.setupIters(ctrl)
			concat := sequence.Concat(iter1, iter2)
			defer concat.Stop()

			var values []string
			var err error
			for {
				var v string
				v, err = concat.Next(context.Background())
				if err != nil {
					break
				}
				values = append(values, v)
			}

			require.Equal(t, tt.expectedValues, values)
			if errors.Is(tt.expectedError, sequence.ErrIteratorDone) {
				require.ErrorIs(t, err, sequence.ErrIteratorDone)
				require.Equal(t, -1, concat.Position())
			} else {
				require.EqualError(t, err, tt.expectedError.Error())
			}
		})
	}
}

func TestConcatAnother(t *testing.T) {
	ctx := context.Background()
	concat := sequence.Concat(
		sequence.FromSlice([]int{1, 2}),
		sequence.Empty[int](),
		sequence.FromSlice([]int{3}),
	)

	first, err := sequence.Collect(ctx, concat)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, first)

	another, err := concat.Another()
	require.NoError(t, err)
	second, err := sequence.Collect(ctx, another)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
