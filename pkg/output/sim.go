package output

import (
	"sort"
	"sync"
)

// SimLine is the state of a simulated line.
type SimLine struct {
	High   bool
	Writes int
}

// Sim is an in-memory Bank. A line becomes an output on its first Out.
type Sim struct {
	// Fail, when set, is returned by Out for the lines it maps.
	Fail map[int]error

	lock  sync.Mutex
	lines map[int]*SimLine
}

// NewSim creates a Sim.
func NewSim() *Sim {
	return &Sim{lines: make(map[int]*SimLine)}
}

// Out implements Bank.
func (s *Sim) Out(line int, high bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.Fail[line]; err != nil {
		return err
	}
	l := s.lines[line]
	if l == nil {
		l = &SimLine{}
		s.lines[line] = l
	}
	l.High = high
	l.Writes++
	return nil
}

// Line returns the state of a line, ok is false if it was never driven.
func (s *Sim) Line(line int) (state SimLine, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if l := s.lines[line]; l != nil {
		return *l, true
	}
	return SimLine{}, false
}

// Outputs lists lines configured as outputs, ascending.
func (s *Sim) Outputs() []int {
	s.lock.Lock()
	defer s.lock.Unlock()
	lines := make([]int, 0, len(s.lines))
	for line := range s.lines {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}
