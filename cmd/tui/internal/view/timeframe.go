package view

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Timeframe is a predefined or custom date range selection.
type Timeframe int

const (
	TimeframeToday Timeframe = iota
	TimeframeThisWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeThisYear
	TimeframeAll
	TimeframeCustom
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeToday:
		return "Today"
	case TimeframeThisWeek:
		return "This Week"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeThisYear:
		return "This Year"
	case TimeframeAll:
		return "All Time"
	case TimeframeCustom:
		return "Custom Range"
	}

	return "Unknown"
}

// dateRange returns the inclusive day range of tf as of now. Weeks start on Monday.
// Transactions are dated at UTC midnight, so both bounds are too.
func dateRange(tf Timeframe, now time.Time) (time.Time, time.Time) {
	today := day(now)

	switch tf {
	case TimeframeToday:
		return today, today
	case TimeframeThisWeek:
		offset := int(today.Weekday())
		if offset == 0 {
			offset = 7
		}

		return today.AddDate(0, 0, -offset+1), today
	case TimeframeThisMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today
	case TimeframeLastMonth:
		start := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	case TimeframeThisYear:
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), today
	}

	return time.Time{}, time.Time{}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeframeSelectedMsg is emitted when the user has selected a valid date range.
// Start and End are zero values when All is true.
type TimeframeSelectedMsg struct {
	Label string
	Start time.Time
	End   time.Time
	All   bool
}

type timeframeState int

const (
	timeframeStateSelect timeframeState = iota
	timeframeStateCustom
)

// TimeframePicker is a reusable component for selecting a date range.
type TimeframePicker struct {
	state    timeframeState
	selected Timeframe
	now      func() time.Time

	startInput textinput.Model
	endInput   textinput.Model
	focusIndex int

	err error
}

func NewTimeframePicker(initial Timeframe) TimeframePicker {
	si := textinput.New()
	si.Placeholder = "YYYY-MM-DD"
	si.CharLimit = 10
	si.Width = 12
	si.Prompt = "Start: "

	ei := textinput.New()
	ei.Placeholder = "YYYY-MM-DD"
	ei.CharLimit = 10
	ei.Width = 12
	ei.Prompt = "End:   "

	return TimeframePicker{
		state:      timeframeStateSelect,
		selected:   initial,
		now:        time.Now,
		startInput: si,
		endInput:   ei,
	}
}

func (m TimeframePicker) Init() tea.Cmd {
	return nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.state == timeframeStateSelect {
			return m.updateSelect(keyMsg)
		}

		if next, cmd, handled := m.updateCustom(keyMsg); handled {
			return next, cmd
		}
	}

	if m.state == timeframeStateCustom {
		return m.updateInputs(msg)
	}

	return m, nil
}

func (m TimeframePicker) updateSelect(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > TimeframeToday {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case tea.KeyEnter:
		switch m.selected {
		case TimeframeCustom:
			m.state = timeframeStateCustom
			m.focusIndex = 0
			m.startInput.Focus()

			return m, textinput.Blink
		case TimeframeAll:
			return m, selected(TimeframeSelectedMsg{Label: m.selected.String(), All: true})
		}

		start, end := dateRange(m.selected, m.now())

		return m, selected(TimeframeSelectedMsg{Label: m.selected.String(), Start: start, End: end})
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.KeyMsg) (TimeframePicker, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focusIndex = (m.focusIndex + 1) % 2
		m.startInput.Blur()
		m.endInput.Blur()

		if m.focusIndex == 0 {
			m.startInput.Focus()
		} else {
			m.endInput.Focus()
		}

		return m, textinput.Blink, true
	case "enter":
		start, end, err := parseRange(m.startInput.Value(), m.endInput.Value())
		if err != nil {
			m.err = err
			return m, nil, true
		}

		m.err = nil
		label := fmt.Sprintf("%s to %s", FormatDate(start), FormatDate(end))

		return m, selected(TimeframeSelectedMsg{Label: label, Start: start, End: end}), true
	case "esc":
		m.state = timeframeStateSelect
		m.err = nil

		return m, nil, true
	}

	return m, nil, false
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date (YYYY-MM-DD)")
	}

	end, err := time.Parse(time.DateOnly, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end date (YYYY-MM-DD)")
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date is before start date")
	}

	return start, end, nil
}

func selected(msg TimeframeSelectedMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m TimeframePicker) updateInputs(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	var cmds []tea.Cmd

	var c tea.Cmd

	m.startInput, c = m.startInput.Update(msg)
	cmds = append(cmds, c)
	m.endInput, c = m.endInput.Update(msg)
	cmds = append(cmds, c)

	return m, tea.Batch(cmds...)
}

func (m TimeframePicker) View() string {
	errStr := ""
	if m.err != nil {
		errStr = errorStyle.Render(fmt.Sprintf("\n\nError: %v", m.err))
	}

	if m.state == timeframeStateCustom {
		return fmt.Sprintf(
			"Enter Custom Range:\n\n%s\n%s\n\n(Enter to confirm, Tab to switch, Esc to back)%s",
			m.startInput.View(),
			m.endInput.View(),
			errStr,
		)
	}

	s := "Select Timeframe:\n\n"

	for tf := TimeframeToday; tf <= TimeframeCustom; tf++ {
		cursor := " "
		if m.selected == tf {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, tf)
	}

	s += "\n(Enter to select, Esc to back)"

	return s + errStr
}

// IsSelecting reports whether the picker shows the preset list rather than custom inputs.
func (m TimeframePicker) IsSelecting() bool {
	return m.state == timeframeStateSelect
}

// Reset returns the picker to its preset list.
func (m *TimeframePicker) Reset() {
	m.state = timeframeStateSelect
	m.err = nil
	m.startInput.SetValue("")
	m.endInput.SetValue("")
}
