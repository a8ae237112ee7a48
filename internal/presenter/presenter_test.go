package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

type recordingRenderer struct {
	views []View
}

func (r *recordingRenderer) Render(view View) {
	r.views = append(r.views, view)
}

func TestShowLoadingThenResult(t *testing.T) {
	rec := &recordingRenderer{}
	p := New(rec)

	p.ShowLoading("key-a")
	p.ShowResult("key-a", models.AnalysisOutcome{QualityScore: 72})

	require.Len(t, rec.views, 2)
	assert.Equal(t, ViewLoading, rec.views[0].State)
	assert.Equal(t, ViewResult, rec.views[1].State)
	assert.Equal(t, 72, rec.views[1].Outcome.QualityScore)

	current := p.Current()
	assert.Equal(t, ViewResult, current.State)
	assert.Equal(t, "key-a", current.Key)
}

func TestStaleResultIsDropped(t *testing.T) {
	rec := &recordingRenderer{}
	p := New(rec)

	p.ShowLoading("key-a")
	p.ShowLoading("key-b")

	// Late answer for the listing the user already left.
	p.ShowResult("key-a", models.AnalysisOutcome{QualityScore: 90})

	current := p.Current()
	assert.Equal(t, ViewLoading, current.State)
	assert.Equal(t, "key-b", current.Key)
	assert.Nil(t, current.Outcome)
}

func TestStaleErrorIsDropped(t *testing.T) {
	p := New(&recordingRenderer{})

	p.ShowLoading("key-b")
	p.ShowError("key-a", utils.KindServerError, "boom", "try later")

	assert.Equal(t, ViewLoading, p.Current().State)
}

func TestLoadingDoesNotEraseResolvedView(t *testing.T) {
	rec := &recordingRenderer{}
	p := New(rec)

	p.ShowLoading("key-a")
	p.ShowResult("key-a", models.AnalysisOutcome{QualityScore: 55})
	p.ShowLoading("key-a")

	assert.Equal(t, ViewResult, p.Current().State)
	require.Len(t, rec.views, 2)
}

func TestErrorRetryability(t *testing.T) {
	p := New(&recordingRenderer{})

	p.ShowLoading("key-a")
	p.ShowError("key-a", utils.KindNetworkError, "no route", "check your connection")
	assert.True(t, p.Current().CanRetry)

	p.ShowLoading("key-b")
	p.ShowError("key-b", utils.KindAuthRequired, "no token", "sign in")
	assert.False(t, p.Current().CanRetry)
}

func TestSurfaceRerendersCurrentView(t *testing.T) {
	rec := &recordingRenderer{}
	p := New(rec)

	p.ShowLoading("key-a")
	p.ShowResult("key-a", models.AnalysisOutcome{QualityScore: 91})
	require.Len(t, rec.views, 2)

	p.Surface("key-a")
	require.Len(t, rec.views, 3)
	assert.Equal(t, ViewResult, rec.views[2].State)
	assert.Equal(t, 91, rec.views[2].Outcome.QualityScore)
}

func TestSurfaceIgnoresOtherKeyAndHiddenSurface(t *testing.T) {
	rec := &recordingRenderer{}
	p := New(rec)

	p.Surface("key-a")
	assert.Empty(t, rec.views)

	p.ShowLoading("key-a")
	p.Surface("key-b")
	assert.Len(t, rec.views, 1)
}

func TestResetHidesSurface(t *testing.T) {
	p := New(&recordingRenderer{})

	p.ShowLoading("key-a")
	p.Reset()

	current := p.Current()
	assert.Equal(t, ViewHidden, current.State)
	assert.Empty(t, current.Key)

	// A result for the old key arriving after reset stays dropped.
	p.ShowResult("key-a", models.AnalysisOutcome{})
	assert.Equal(t, ViewHidden, p.Current().State)
}
