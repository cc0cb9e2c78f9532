package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

func TestElement_PlayFiresEvent(t *testing.T) {
	f := NewElementFactory()
	el, err := f.NewElement("blob:truestream/a", domain.KindAudio)
	require.NoError(t, err)

	var got []domain.ElementEvent
	el.AddListener(func(_ domain.ElementID, ev domain.ElementEvent, _ error) { got = append(got, ev) })

	require.NoError(t, el.Play(context.Background()))
	require.NoError(t, el.Pause())
	assert.Equal(t, []domain.ElementEvent{domain.ElementPlay, domain.ElementPause}, got)
}

func TestElement_HoldPlay(t *testing.T) {
	f := NewElementFactory()
	el, err := f.NewElement("blob:truestream/a", domain.KindAudio)
	require.NoError(t, err)
	release := el.(*Element).HoldPlay()

	done := make(chan error, 1)
	go func() { done <- el.Play(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Play returned before release")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	require.NoError(t, <-done)
}

func TestGraphFactory_BindsOnce(t *testing.T) {
	ef := NewElementFactory()
	gf := NewGraphFactory()
	el, err := ef.NewElement("blob:truestream/a", domain.KindVideo)
	require.NoError(t, err)

	g, err := gf.NewGraph(el)
	require.NoError(t, err)

	_, err = gf.NewGraph(el)
	assert.ErrorIs(t, err, domain.ErrSourceAlreadyBound)

	snap := make(domain.FrequencySnapshot, g.FrequencyBinCount())
	g.Sample(snap)
	assert.Equal(t, uint8(128), snap[0])

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.Equal(t, 0, gf.Live())
}

func TestJournal_RecordsTeardown(t *testing.T) {
	j := NewJournal()
	ef := NewElementFactory()
	ef.SetJournal(j)
	gf := NewGraphFactory()
	gf.SetJournal(j)

	el, err := ef.NewElement("blob:truestream/a", domain.KindAudio)
	require.NoError(t, err)
	g, err := gf.NewGraph(el)
	require.NoError(t, err)

	id := el.AddListener(func(domain.ElementID, domain.ElementEvent, error) {})
	el.RemoveListener(id)
	require.NoError(t, el.Close())
	require.NoError(t, g.Close())

	assert.Equal(t, []string{"element.remove_listener:1", "element.close:1", "graph.close:1"}, j.Entries())
}
