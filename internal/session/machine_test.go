package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rainelz/booko/internal/common/apperrors"
	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/geo"
	"github.com/Rainelz/booko/internal/geocode"
	"github.com/Rainelz/booko/internal/search"
)

var (
	testChatID = int64(42)
	testNow    = time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)
	milan      = geo.Coordinate{Lat: 45.4639, Lon: 9.1906}
)

type fakeSearcher struct {
	got     search.Filter
	result  *search.Result
	err     error
	block   bool
	started chan struct{}
}

func (f *fakeSearcher) Search(ctx context.Context, filter search.Filter) (*search.Result, error) {
	f.got = filter
	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &search.Result{}, nil
}

type fakeGeocoder struct {
	result *geocode.Result
	err    error
}

func (f *fakeGeocoder) Resolve(_ context.Context, _ string) (*geocode.Result, error) {
	return f.result, f.err
}

func newTestMachine(t *testing.T, searcher Searcher, geocoder Geocoder) (*Machine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Hour)
	t.Cleanup(store.Close)

	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	if geocoder == nil {
		geocoder = &fakeGeocoder{}
	}

	m := NewMachine(store, searcher, geocoder, search.NewFormatter(time.UTC),
		Defaults{Address: "piazza duomo Milan", Origin: milan}, logger.NewTestLogger(t))
	m.now = func() time.Time { return testNow }
	return m, store
}

func mustSession(t *testing.T, store *MemoryStore, chatID int64) *Session {
	t.Helper()
	sess, err := store.Get(context.Background(), chatID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	return sess
}

func TestStart_OffersOriginChoices(t *testing.T) {
	m, store := newTestMachine(t, nil, nil)

	reply := m.Start(context.Background(), testChatID)

	require.Len(t, reply.Inline, 4)
	assert.Equal(t, string(ChoiceAddress), reply.Inline[0].Data)
	assert.Contains(t, reply.Inline[3].Label, "piazza duomo Milan")

	sess := mustSession(t, store, testChatID)
	assert.Equal(t, StateAwaitOriginChoice, sess.State)
}

func TestDefaultOriginFlow_RunsSearchWithCollectedFilter(t *testing.T) {
	searcher := &fakeSearcher{}
	m, store := newTestMachine(t, searcher, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	reply := m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))
	assert.Contains(t, reply.Text, "km")
	assert.Equal(t, distanceChoices(), reply.Choices)

	reply = m.OnDistanceText(ctx, testChatID, "10")
	assert.Equal(t, priceChoices(), reply.Choices)

	reply = m.OnPriceText(ctx, testChatID, "25")
	assert.Equal(t, hourChoices(), reply.Choices)

	reply = m.OnHourText(ctx, testChatID, "18:00")
	assert.Equal(t, []string{"15-07", "16-07"}, reply.Choices)

	reply = m.OnDatesText(ctx, testChatID, "16-07")
	assert.True(t, reply.RemoveKeyboard)
	assert.Contains(t, reply.Text, "No fields found")

	assert.Equal(t, milan, searcher.got.Origin)
	assert.Equal(t, 10.0, searcher.got.MaxDistanceKm)
	assert.Equal(t, 25.0, searcher.got.MaxPriceUnits)
	assert.Equal(t, 18, searcher.got.EarliestHour)
	require.Len(t, searcher.got.Dates, 1)
	assert.Equal(t, time.Date(2024, 7, 16, 0, 0, 0, 0, time.UTC), searcher.got.Dates[0])

	// The conversation is over either way.
	sess, err := store.Get(ctx, testChatID)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestAddressFlow_ResolvesOrigin(t *testing.T) {
	searcher := &fakeSearcher{}
	geocoder := &fakeGeocoder{result: &geocode.Result{
		Coordinate:  geo.Coordinate{Lat: 41.9, Lon: 12.5},
		DisplayName: "Rome, Italy",
	}}
	m, store := newTestMachine(t, searcher, geocoder)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	reply := m.OnOriginChoice(ctx, testChatID, string(ChoiceAddress))
	assert.Contains(t, reply.Text, "address")

	reply = m.OnAddressText(ctx, testChatID, "via del corso roma")
	assert.Equal(t, distanceChoices(), reply.Choices)

	sess := mustSession(t, store, testChatID)
	assert.Equal(t, StateAwaitDistance, sess.State)
	assert.Equal(t, 41.9, sess.Filter.Origin.Lat)
}

func TestAddressFlow_AmbiguousMatchIsAnnounced(t *testing.T) {
	geocoder := &fakeGeocoder{result: &geocode.Result{
		Coordinate:  geo.Coordinate{Lat: 41.9, Lon: 12.5},
		DisplayName: "Rome, Italy",
		Ambiguous:   true,
	}}
	m, _ := newTestMachine(t, nil, geocoder)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceAddress))
	reply := m.OnAddressText(ctx, testChatID, "rome")

	assert.Contains(t, reply.Text, "more than one place")
	assert.Contains(t, reply.Text, "Rome, Italy")
}

func TestAddressFlow_NotFoundRepromptsSameState(t *testing.T) {
	geocoder := &fakeGeocoder{err: apperrors.NewAddressNotFound("nowhere")}
	m, store := newTestMachine(t, nil, geocoder)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceAddress))
	reply := m.OnAddressText(ctx, testChatID, "nowhere")

	assert.Contains(t, reply.Text, "couldn't find")
	sess := mustSession(t, store, testChatID)
	assert.Equal(t, StateAwaitAddress, sess.State)
}

func TestLocationFlow_UsesPinCoordinates(t *testing.T) {
	m, store := newTestMachine(t, nil, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceLocation))
	reply := m.OnLocationEvent(ctx, testChatID, 45.07, 7.69)

	assert.Equal(t, distanceChoices(), reply.Choices)
	sess := mustSession(t, store, testChatID)
	assert.Equal(t, geo.Coordinate{Lat: 45.07, Lon: 7.69}, sess.Filter.Origin)
}

func TestNamesFlow_KeywordsWithDefaultOrigin(t *testing.T) {
	m, store := newTestMachine(t, nil, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceNames))
	reply := m.OnNamesText(ctx, testChatID, "CourtClub Paradiso")

	assert.Equal(t, distanceChoices(), reply.Choices)
	sess := mustSession(t, store, testChatID)
	assert.Equal(t, []string{"CourtClub", "Paradiso"}, sess.Filter.NameKeywords)
	assert.Equal(t, milan, sess.Filter.Origin)
}

func TestInvalidDistance_RepromptsWithoutMutatingFilter(t *testing.T) {
	m, store := newTestMachine(t, nil, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))

	for _, input := range []string{"abc", "-3", "0", ""} {
		reply := m.OnDistanceText(ctx, testChatID, input)
		assert.Contains(t, reply.Text, "positive number")

		sess := mustSession(t, store, testChatID)
		assert.Equal(t, StateAwaitDistance, sess.State)
		assert.Zero(t, sess.Filter.MaxDistanceKm)
	}

	// A valid answer still goes through afterwards.
	reply := m.OnDistanceText(ctx, testChatID, "5")
	assert.Equal(t, priceChoices(), reply.Choices)
}

func TestInvalidHourAndDates_Reprompt(t *testing.T) {
	m, _ := newTestMachine(t, nil, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))
	m.OnDistanceText(ctx, testChatID, "10")
	m.OnPriceText(ctx, testChatID, "25")

	for _, input := range []string{"25:00", "noon", "-1"} {
		reply := m.OnHourText(ctx, testChatID, input)
		assert.Contains(t, reply.Text, "18:00")
	}

	m.OnHourText(ctx, testChatID, "18")

	for _, input := range []string{"tomorrow", "32-01", "31-02", "15/07"} {
		reply := m.OnDatesText(ctx, testChatID, input)
		assert.Contains(t, reply.Text, "DD-MM")
	}
}

func TestEmptyDates_DefaultToTodayAndTomorrow(t *testing.T) {
	searcher := &fakeSearcher{}
	m, _ := newTestMachine(t, searcher, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))
	m.OnDistanceText(ctx, testChatID, "10")
	m.OnPriceText(ctx, testChatID, "25")
	m.OnHourText(ctx, testChatID, "10:00")
	m.OnDatesText(ctx, testChatID, "  ")

	require.Len(t, searcher.got.Dates, 2)
	assert.Equal(t, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), searcher.got.Dates[0])
	assert.Equal(t, time.Date(2024, 7, 16, 0, 0, 0, 0, time.UTC), searcher.got.Dates[1])
}

func TestDirectoryUnavailable_EndsConversation(t *testing.T) {
	searcher := &fakeSearcher{err: apperrors.NewDirectoryUnavailable(assert.AnError)}
	m, store := newTestMachine(t, searcher, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))
	m.OnDistanceText(ctx, testChatID, "10")
	m.OnPriceText(ctx, testChatID, "25")
	m.OnHourText(ctx, testChatID, "10")
	reply := m.OnDatesText(ctx, testChatID, "15-07")

	assert.Contains(t, reply.Text, "directory is unreachable")

	sess, err := store.Get(ctx, testChatID)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestCancel_AbortsRunningSearch(t *testing.T) {
	searcher := &fakeSearcher{block: true, started: make(chan struct{})}
	m, _ := newTestMachine(t, searcher, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))
	m.OnDistanceText(ctx, testChatID, "10")
	m.OnPriceText(ctx, testChatID, "25")
	m.OnHourText(ctx, testChatID, "10")

	done := make(chan Reply, 1)
	go func() {
		done <- m.OnDatesText(ctx, testChatID, "15-07")
	}()

	<-searcher.started
	cancelReply := m.OnCancel(ctx, testChatID)
	assert.Equal(t, msgCancelled, cancelReply.Text)

	select {
	case reply := <-done:
		assert.Contains(t, reply.Text, "cancelled")
	case <-time.After(2 * time.Second):
		t.Fatal("search was not cancelled")
	}
}

func TestStartDuringSearch_RestartedConversationSurvives(t *testing.T) {
	searcher := &fakeSearcher{block: true, started: make(chan struct{})}
	m, store := newTestMachine(t, searcher, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))
	m.OnDistanceText(ctx, testChatID, "10")
	m.OnPriceText(ctx, testChatID, "25")
	m.OnHourText(ctx, testChatID, "10")

	done := make(chan Reply, 1)
	go func() {
		done <- m.OnDatesText(ctx, testChatID, "15-07")
	}()

	// Restart mid-search: the old search is aborted and a new
	// conversation begins.
	<-searcher.started
	startReply := m.Start(ctx, testChatID)
	require.Len(t, startReply.Inline, 4)

	select {
	case reply := <-done:
		assert.Contains(t, reply.Text, "cancelled")
	case <-time.After(2 * time.Second):
		t.Fatal("search was not aborted by /start")
	}

	// The restarted conversation still owns its fresh session once the
	// aborted search has unwound.
	sess := mustSession(t, store, testChatID)
	assert.Equal(t, StateAwaitOriginChoice, sess.State)
	assert.Zero(t, sess.Filter.MaxDistanceKm)
}

func TestHandleText_RoutesByState(t *testing.T) {
	searcher := &fakeSearcher{}
	m, _ := newTestMachine(t, searcher, nil)
	ctx := context.Background()

	assert.Equal(t, msgNeedStart, m.HandleText(ctx, testChatID, "hello").Text)

	m.Start(ctx, testChatID)
	m.OnOriginChoice(ctx, testChatID, string(ChoiceDefault))

	m.HandleText(ctx, testChatID, "10")
	m.HandleText(ctx, testChatID, "25")
	m.HandleText(ctx, testChatID, "18:00")
	reply := m.HandleText(ctx, testChatID, "15-07")

	assert.True(t, reply.RemoveKeyboard)
	assert.Equal(t, 10.0, searcher.got.MaxDistanceKm)
}

func TestOutOfOrderInput_IsRejected(t *testing.T) {
	m, store := newTestMachine(t, nil, nil)
	ctx := context.Background()

	m.Start(ctx, testChatID)

	// Still waiting for the origin choice; a distance answer is premature.
	reply := m.OnDistanceText(ctx, testChatID, "10")
	assert.Contains(t, reply.Text, "/cancel")

	sess := mustSession(t, store, testChatID)
	assert.Equal(t, StateAwaitOriginChoice, sess.State)
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "18:00", want: 18},
		{in: "18:30", want: 18},
		{in: "9", want: 9},
		{in: "0", want: 0},
		{in: "23:59", want: 23},
		{in: "24:00", wantErr: true},
		{in: "18:xx", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseHour(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
