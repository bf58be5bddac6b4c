// Package diskui is a live terminal monitor for the track cache: a grid
// of tracks colored by cache state plus a status panel for motor, disk
// type, and retry-policy state.
package diskui

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"floppyfs/pkg/trackengine"
)

// ErrInterrupted is returned by callers polling IsStopped after the user
// requests to stop the watch.
var ErrInterrupted = errors.New("interrupted")

// Screen is a terminal-based live view of an Engine's track cache.
type Screen struct {
	s        tcell.Screen
	stopChan chan struct{}
	once     sync.Once

	title       string
	statusLines []string
	legendLines []string
	grid        []trackengine.TrackState
	cols        int
}

// NewScreen opens a tcell screen and starts its input event loop.
func NewScreen(title string) (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	cleanR, _ := stateStyle(trackengine.TrackClean)
	dirtyR, _ := stateStyle(trackengine.TrackDirty)
	errR, _ := stateStyle(trackengine.TrackError)
	unkR, _ := stateStyle(trackengine.TrackUnknown)
	sc := &Screen{
		s:        s,
		stopChan: make(chan struct{}),
		title:    title,
		legendLines: []string{
			legendEntry(cleanR, "clean") +
				"  " + legendEntry(dirtyR, "dirty") +
				"  " + legendEntry(errR, "error") +
				"  " + legendEntry(unkR, "unread"),
		},
	}
	go sc.eventLoop()
	return sc, nil
}

// Close restores the terminal to its original state.
func (sc *Screen) Close() {
	if sc.s == nil {
		return
	}
	sc.s.Fini()
	sc.s = nil
}

// RequestStop signals the watch loop to end. Safe to call multiple times.
func (sc *Screen) RequestStop() {
	sc.once.Do(func() {
		close(sc.stopChan)
		sc.s.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

// IsStopped reports whether the user has requested to stop.
func (sc *Screen) IsStopped() bool {
	select {
	case <-sc.stopChan:
		return true
	default:
		return false
	}
}

// Update refreshes the track grid and status panel from a fresh
// trackengine.Snapshot and redraws.
func (sc *Screen) Update(snap trackengine.Snapshot) {
	sc.grid = snap.Tracks
	w, _ := sc.s.Size()
	sc.cols = gridColumns(w, len(snap.Tracks))

	motor := "off"
	if snap.MotorOn {
		motor = "on"
	}
	present := "no"
	if snap.DiskPresent {
		present = "yes"
	}
	protect := "no"
	if snap.WriteProtect {
		protect = "yes"
	}
	sc.statusLines = []string{
		fmt.Sprintf("type=%-8s present=%-3s write-protect=%-3s motor=%-3s tracks=%d",
			snap.DiskType, present, protect, motor, snap.TotalTracks),
	}
	if snap.IgnoreErrors || snap.AlwaysIgnore {
		sc.statusLines = append(sc.statusLines,
			fmt.Sprintf("ignore-errors=%v always-ignore=%v", snap.IgnoreErrors, snap.AlwaysIgnore))
	}
	sc.draw()
}

func gridColumns(width, count int) int {
	if width <= 0 {
		width = 80
	}
	cols := width
	if cols > count && count > 0 {
		cols = count
	}
	if cols < 1 {
		cols = 1
	}
	return cols
}

func stateStyle(st trackengine.TrackState) (rune, tcell.Style) {
	switch st {
	case trackengine.TrackClean:
		return '.', tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case trackengine.TrackDirty:
		return '*', tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case trackengine.TrackError:
		return 'x', tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return '-', tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}

func legendEntry(r rune, label string) string {
	return fmt.Sprintf("%c=%s", r, label)
}

func putStr(s tcell.Screen, x, y int, str string, style tcell.Style) {
	w, _ := s.Size()
	for i, r := range str {
		pos := x + i
		if pos >= w {
			break
		}
		s.SetContent(pos, y, r, nil, style)
	}
}

func (sc *Screen) draw() {
	sc.s.Clear()
	w, h := sc.s.Size()
	y := 0

	if sc.title != "" {
		putStr(sc.s, 0, y, strings.Repeat("═", w), tcell.StyleDefault)
		x := (w - len(sc.title)) / 2
		putStr(sc.s, x, y, sc.title, tcell.StyleDefault)
		y++
	}

	for _, line := range sc.legendLines {
		if y >= h {
			break
		}
		putStr(sc.s, 0, y, line, tcell.StyleDefault)
		y++
	}

	cols := sc.cols
	if cols < 1 {
		cols = 1
	}
	gridStart := y
	gridRows := (len(sc.grid) + cols - 1) / cols
	maxRows := h - gridStart - len(sc.statusLines) - 2
	if maxRows < 1 {
		maxRows = 1
	}
	if gridRows > maxRows {
		gridRows = maxRows
	}
	for i, st := range sc.grid {
		row := i / cols
		if row >= gridRows {
			break
		}
		col := i % cols
		r, style := stateStyle(st)
		sc.s.SetContent(col, gridStart+row, r, nil, style)
	}
	y = gridStart + gridRows

	if len(sc.statusLines) > 0 {
		putStr(sc.s, 0, y, strings.Repeat("─", w), tcell.StyleDefault)
		y++
		for _, line := range sc.statusLines {
			if y >= h {
				break
			}
			putStr(sc.s, 0, y, line, tcell.StyleDefault)
			y++
		}
	}

	sc.s.Show()
}

func (sc *Screen) eventLoop() {
	for {
		select {
		case <-sc.stopChan:
			return
		default:
		}
		ev := sc.s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC:
				sc.RequestStop()
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				sc.RequestStop()
			case ev.Key() == tcell.KeyEscape:
				sc.RequestStop()
			}
		case *tcell.EventResize:
			sc.s.Sync()
		case *tcell.EventInterrupt:
			return
		case nil:
			return
		}
	}
}
