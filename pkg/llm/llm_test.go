package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swstevens/agentic-cag-system/pkg/errs"
)

type fakeClient struct {
	calls   int
	failN   int // number of leading calls that fail
	resp    Response
}

func (f *fakeClient) Complete(ctx context.Context, req Request) (Response, error) {
	f.calls++
	if f.calls <= f.failN {
		return Response{}, errors.New("provider returned malformed json")
	}
	return f.resp, nil
}

func TestDecorate_SucceedsFirstTry(t *testing.T) {
	fc := &fakeClient{resp: Response{Schema: SchemaModificationIntent}}
	client := Decorate(fc)

	resp, err := client.Complete(context.Background(), Request{Schema: SchemaModificationIntent})
	require.NoError(t, err)
	assert.Equal(t, SchemaModificationIntent, resp.Schema)
	assert.Equal(t, 1, fc.calls)
}

func TestDecorate_RetriesOnceThenSucceeds(t *testing.T) {
	fc := &fakeClient{failN: 1, resp: Response{Schema: SchemaDeckConstructionPlan}}
	client := Decorate(fc)

	resp, err := client.Complete(context.Background(), Request{Schema: SchemaDeckConstructionPlan})
	require.NoError(t, err)
	assert.Equal(t, SchemaDeckConstructionPlan, resp.Schema)
	assert.Equal(t, 2, fc.calls)
}

func TestDecorate_FailsAfterRetryExhausted(t *testing.T) {
	fc := &fakeClient{failN: 2}
	client := Decorate(fc)

	_, err := client.Complete(context.Background(), Request{Schema: SchemaRefinementPlan})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindParseFailure))
	assert.Equal(t, 2, fc.calls)
}

func TestDecorate_CancelledContextShortCircuits(t *testing.T) {
	fc := &fakeClient{failN: 1}
	client := Decorate(fc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, Request{Schema: SchemaRefinementPlan})
	require.Error(t, err)
	assert.Equal(t, 1, fc.calls)
}
