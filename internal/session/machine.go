package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Rainelz/booko/internal/common/apperrors"
	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/geo"
	"github.com/Rainelz/booko/internal/geocode"
	"github.com/Rainelz/booko/internal/search"
)

// Searcher runs one assembled filter through the search pipeline.
type Searcher interface {
	Search(ctx context.Context, filter search.Filter) (*search.Result, error)
}

// Geocoder resolves a free-text address into coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (*geocode.Result, error)
}

// Defaults are applied when the user picks the default origin or sends
// no dates.
type Defaults struct {
	Address string
	Origin  geo.Coordinate
}

// Machine drives the parameter-collection conversation. Every entry
// point loads the chat's session, applies the input and answers with the
// next prompt. Invalid input re-prompts the same step without touching
// the filter collected so far.
type Machine struct {
	store     Store
	searcher  Searcher
	geocoder  Geocoder
	formatter *search.Formatter
	defaults  Defaults
	logger    logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	running map[int64]context.CancelFunc
}

func NewMachine(store Store, searcher Searcher, geocoder Geocoder, formatter *search.Formatter, defaults Defaults, log logger.Logger) *Machine {
	return &Machine{
		store:     store,
		searcher:  searcher,
		geocoder:  geocoder,
		formatter: formatter,
		defaults:  defaults,
		logger:    log.WithFields(map[string]interface{}{"component": "session"}),
		now:       time.Now,
		running:   make(map[int64]context.CancelFunc),
	}
}

const (
	msgStoreFailure = "Something went wrong on my side, please try again."
	msgNeedStart    = "Send /start to begin a new search."
	msgCancelled    = "Bye! I hope we can talk again some day."
)

// Start opens a fresh conversation, discarding any previous one.
func (m *Machine) Start(ctx context.Context, chatID int64) Reply {
	m.cancelRunning(chatID)

	sess := newSession(chatID, m.now())
	if err := m.save(ctx, sess); err != nil {
		return Reply{Text: msgStoreFailure}
	}

	return Reply{
		Text: "Hi! I can look for available sport fields around you.\nHow do you want to pick the search origin?",
		Inline: []InlineChoice{
			{Label: "Address", Data: string(ChoiceAddress)},
			{Label: "My location", Data: string(ChoiceLocation)},
			{Label: "Venue names", Data: string(ChoiceNames)},
			{Label: "Default (" + m.defaults.Address + ")", Data: string(ChoiceDefault)},
		},
	}
}

// OnOriginChoice consumes the inline keyboard answer of the first step.
func (m *Machine) OnOriginChoice(ctx context.Context, chatID int64, data string) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitOriginChoice)
	if sess == nil {
		return reply
	}

	choice, err := ParseOriginChoice(data)
	if err != nil {
		m.logger.Warn("unknown origin choice", map[string]interface{}{"chatId": chatID, "data": data})
		return Reply{Text: "Please pick one of the options above."}
	}

	switch choice {
	case ChoiceAddress:
		sess.State = StateAwaitAddress
		if err := m.save(ctx, sess); err != nil {
			return Reply{Text: msgStoreFailure}
		}
		return Reply{Text: "Send me the address to search around."}

	case ChoiceLocation:
		sess.State = StateAwaitLocation
		if err := m.save(ctx, sess); err != nil {
			return Reply{Text: msgStoreFailure}
		}
		return Reply{Text: "Send me a location pin."}

	case ChoiceNames:
		// Name search still needs a geographic anchor for the directory
		// query; the default origin serves as one.
		sess.State = StateAwaitNames
		sess.Filter.Origin = m.defaults.Origin
		if err := m.save(ctx, sess); err != nil {
			return Reply{Text: msgStoreFailure}
		}
		return Reply{Text: "Send me the venue names to look for, separated by spaces."}

	default: // ChoiceDefault
		sess.Filter.Origin = m.defaults.Origin
		return m.toDistance(ctx, sess)
	}
}

// OnAddressText geocodes the address the user typed.
func (m *Machine) OnAddressText(ctx context.Context, chatID int64, text string) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitAddress)
	if sess == nil {
		return reply
	}

	resolved, err := m.geocoder.Resolve(ctx, strings.TrimSpace(text))
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeAddressNotFound) {
			return Reply{Text: "I couldn't find that address, try another one."}
		}
		m.logger.Error("geocoding failed", map[string]interface{}{"chatId": chatID, "error": err.Error()})
		return Reply{Text: "I couldn't look that address up right now, try again."}
	}

	sess.Filter.Origin = resolved.Coordinate
	next := m.toDistance(ctx, sess)
	if resolved.Ambiguous {
		next.Text = fmt.Sprintf("That address matched more than one place, using %q.\n%s", resolved.DisplayName, next.Text)
	}
	return next
}

// OnLocationEvent consumes a location pin.
func (m *Machine) OnLocationEvent(ctx context.Context, chatID int64, lat, lon float64) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitLocation)
	if sess == nil {
		return reply
	}

	sess.Filter.Origin = geo.Coordinate{Lat: lat, Lon: lon}
	return m.toDistance(ctx, sess)
}

// OnNamesText records the venue name keywords.
func (m *Machine) OnNamesText(ctx context.Context, chatID int64, text string) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitNames)
	if sess == nil {
		return reply
	}

	keywords := strings.Fields(text)
	if len(keywords) == 0 {
		return Reply{Text: "Send me at least one venue name."}
	}

	sess.Filter.NameKeywords = keywords
	return m.toDistance(ctx, sess)
}

// OnDistanceText records the distance limit in kilometres.
func (m *Machine) OnDistanceText(ctx context.Context, chatID int64, text string) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitDistance)
	if sess == nil {
		return reply
	}

	km, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || km <= 0 {
		return Reply{Text: "That's not a distance I can use, send a positive number of km.", Choices: distanceChoices()}
	}

	sess.Filter.MaxDistanceKm = km
	sess.State = StateAwaitPrice
	if err := m.save(ctx, sess); err != nil {
		return Reply{Text: msgStoreFailure}
	}
	return Reply{Text: "What's the most you want to pay per slot?", Choices: priceChoices()}
}

// OnPriceText records the price ceiling.
func (m *Machine) OnPriceText(ctx context.Context, chatID int64, text string) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitPrice)
	if sess == nil {
		return reply
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || price < 0 {
		return Reply{Text: "That's not a price I can use, send a non-negative number.", Choices: priceChoices()}
	}

	sess.Filter.MaxPriceUnits = price
	sess.State = StateAwaitHour
	if err := m.save(ctx, sess); err != nil {
		return Reply{Text: msgStoreFailure}
	}
	return Reply{Text: "From what hour should I look? (HH:MM)", Choices: hourChoices()}
}

// OnHourText records the earliest acceptable start hour. Minutes are
// accepted but ignored; availability is queried from the full hour.
func (m *Machine) OnHourText(ctx context.Context, chatID int64, text string) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitHour)
	if sess == nil {
		return reply
	}

	hour, err := parseHour(text)
	if err != nil {
		return Reply{Text: "That's not an hour I can use, send something like 18:00.", Choices: hourChoices()}
	}

	sess.Filter.EarliestHour = hour
	sess.State = StateAwaitDates
	if err := m.save(ctx, sess); err != nil {
		return Reply{Text: msgStoreFailure}
	}
	return Reply{
		Text:    "Which dates? Send them as DD-MM separated by spaces.",
		Choices: m.dateChoices(),
	}
}

// OnDatesText parses the requested dates and runs the search. An empty
// message falls back to today and tomorrow.
func (m *Machine) OnDatesText(ctx context.Context, chatID int64, text string) Reply {
	sess, reply := m.load(ctx, chatID, StateAwaitDates)
	if sess == nil {
		return reply
	}

	dates, err := m.parseDates(text)
	if err != nil {
		return Reply{Text: "I couldn't read those dates, send them as DD-MM separated by spaces.", Choices: m.dateChoices()}
	}

	sess.Filter.Dates = dates
	return m.runSearch(ctx, sess)
}

// OnCancel ends the conversation and aborts a search in flight.
func (m *Machine) OnCancel(ctx context.Context, chatID int64) Reply {
	m.cancelRunning(chatID)

	if err := m.store.Delete(ctx, chatID); err != nil {
		m.logger.Error("failed to delete session", map[string]interface{}{"chatId": chatID, "error": err.Error()})
	}
	return Reply{Text: msgCancelled, RemoveKeyboard: true}
}

// HandleText routes a plain text message to the entry point of the
// chat's current state.
func (m *Machine) HandleText(ctx context.Context, chatID int64, text string) Reply {
	sess, err := m.store.Get(ctx, chatID)
	if err != nil {
		m.logger.Error("failed to load session", map[string]interface{}{"chatId": chatID, "error": err.Error()})
		return Reply{Text: msgStoreFailure}
	}
	if sess == nil {
		return Reply{Text: msgNeedStart}
	}

	switch sess.State {
	case StateAwaitAddress:
		return m.OnAddressText(ctx, chatID, text)
	case StateAwaitNames:
		return m.OnNamesText(ctx, chatID, text)
	case StateAwaitDistance:
		return m.OnDistanceText(ctx, chatID, text)
	case StateAwaitPrice:
		return m.OnPriceText(ctx, chatID, text)
	case StateAwaitHour:
		return m.OnHourText(ctx, chatID, text)
	case StateAwaitDates:
		return m.OnDatesText(ctx, chatID, text)
	case StateAwaitLocation:
		return Reply{Text: "Send me a location pin, or /cancel."}
	default:
		return Reply{Text: "Please answer with the keyboard above, or /cancel."}
	}
}

// toDistance advances a session that just acquired an origin.
func (m *Machine) toDistance(ctx context.Context, sess *Session) Reply {
	sess.State = StateAwaitDistance
	if err := m.save(ctx, sess); err != nil {
		return Reply{Text: msgStoreFailure}
	}
	return Reply{Text: "How far are you willing to go, in km?", Choices: distanceChoices()}
}

// runSearch executes the assembled filter, renders the outcome and ends
// the conversation either way. The session is dropped before the search
// starts: a /start arriving mid-search owns a fresh session, and this
// invocation must never touch it.
func (m *Machine) runSearch(ctx context.Context, sess *Session) Reply {
	if err := m.store.Delete(ctx, sess.ChatID); err != nil {
		m.logger.Error("failed to delete session", map[string]interface{}{"chatId": sess.ChatID, "error": err.Error()})
	}

	searchCtx, cancel := context.WithCancel(ctx)
	m.registerRunning(sess.ChatID, cancel)
	defer m.unregisterRunning(sess.ChatID)
	defer cancel()

	result, err := m.searcher.Search(searchCtx, sess.Filter)

	switch {
	case errors.Is(err, context.Canceled):
		return Reply{Text: "Search cancelled.", RemoveKeyboard: true}
	case apperrors.HasCode(err, apperrors.CodeDirectoryUnavailable):
		return Reply{Text: "The venue directory is unreachable right now, please try again later. " + msgNeedStart, RemoveKeyboard: true}
	case err != nil:
		m.logger.Error("search failed", map[string]interface{}{"chatId": sess.ChatID, "error": err.Error()})
		return Reply{Text: "The search failed, sorry. " + msgNeedStart, RemoveKeyboard: true}
	}

	return Reply{Text: m.formatter.Format(result), RemoveKeyboard: true}
}

func (m *Machine) load(ctx context.Context, chatID int64, want State) (*Session, Reply) {
	sess, err := m.store.Get(ctx, chatID)
	if err != nil {
		m.logger.Error("failed to load session", map[string]interface{}{"chatId": chatID, "error": err.Error()})
		return nil, Reply{Text: msgStoreFailure}
	}
	if sess == nil {
		return nil, Reply{Text: msgNeedStart}
	}
	if sess.State != want {
		return nil, Reply{Text: "Please answer the question above, or /cancel."}
	}
	return sess, Reply{}
}

func (m *Machine) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = m.now()
	if err := m.store.Put(ctx, sess); err != nil {
		m.logger.Error("failed to store session", map[string]interface{}{"chatId": sess.ChatID, "error": err.Error()})
		return err
	}
	return nil
}

func (m *Machine) registerRunning(chatID int64, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[chatID] = cancel
}

func (m *Machine) unregisterRunning(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.running, chatID)
}

func (m *Machine) cancelRunning(chatID int64) {
	m.mu.Lock()
	cancel, ok := m.running[chatID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

func parseHour(text string) (int, error) {
	raw := strings.TrimSpace(text)
	if h, m, ok := strings.Cut(raw, ":"); ok {
		if _, err := strconv.Atoi(m); err != nil {
			return 0, fmt.Errorf("invalid minutes %q", m)
		}
		raw = h
	}

	hour, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q", text)
	}
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour %d out of range", hour)
	}
	return hour, nil
}

// parseDates reads whitespace-separated DD-MM tokens against the current
// year. A token like 31-02 that does not name a real day is rejected.
func (m *Machine) parseDates(text string) ([]time.Time, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		today := m.today()
		return []time.Time{today, today.AddDate(0, 0, 1)}, nil
	}

	dates := make([]time.Time, 0, len(tokens))
	for _, token := range tokens {
		dayPart, monthPart, ok := strings.Cut(token, "-")
		if !ok {
			return nil, fmt.Errorf("invalid date %q", token)
		}
		day, err := strconv.Atoi(dayPart)
		if err != nil {
			return nil, fmt.Errorf("invalid day in %q", token)
		}
		month, err := strconv.Atoi(monthPart)
		if err != nil {
			return nil, fmt.Errorf("invalid month in %q", token)
		}

		date := time.Date(m.now().Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if date.Day() != day || int(date.Month()) != month {
			return nil, fmt.Errorf("no such date %q", token)
		}
		dates = append(dates, date)
	}
	return dates, nil
}

func (m *Machine) today() time.Time {
	now := m.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func distanceChoices() []string {
	return []string{"1", "2", "5", "10", "15", "20"}
}

func priceChoices() []string {
	return []string{"10", "15", "30"}
}

func hourChoices() []string {
	return []string{"10:00", "15:00", "18:00"}
}

func (m *Machine) dateChoices() []string {
	today := m.today()
	return []string{today.Format("02-01"), today.AddDate(0, 0, 1).Format("02-01")}
}
