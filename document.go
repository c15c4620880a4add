// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/OpenPSG/tracks/config"
	"github.com/OpenPSG/tracks/filter"
	"github.com/OpenPSG/tracks/format"
)

// Derived channel slots, counted from the first channel after the regular ones.
const (
	DerivedGFP = iota
	DerivedDissimilarity
	DerivedAverage

	NumDerived
)

// TimeDisplay selects how time frames are shown to the user.
type TimeDisplay int

const (
	// Relative shows the elapsed time since the start of the session.
	Relative TimeDisplay = iota
	// Absolute shows the wall clock time, when the recording has a start time.
	Absolute
)

// Change identifies what a configuration mutation touched.
type Change int

const (
	FiltersChanged Change = iota
	ReferenceChanged
	ChannelsChanged
	SessionChanged
	Reverted
)

func (c Change) String() string {
	switch c {
	case FiltersChanged:
		return "filters"
	case ReferenceChanged:
		return "reference"
	case ChannelsChanged:
		return "channels"
	case SessionChanged:
		return "session"
	case Reverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// Document is one open recording.
type Document struct {
	path   string
	opts   *Options
	cfg    *config.Config
	log    *slog.Logger
	reader format.Reader
	format format.Format
	hdr    *format.Header

	session int
	markers []format.Marker
	bad     []bool
	aux     []bool

	ref     filter.Reference
	filters filter.Config
	active  bool
	chain   *filter.Chain

	display     TimeDisplay
	limits      Limits
	subscribers map[int]func(Change)
	nextSub     int
	closed      bool
}

// Open opens path with the first decoder of the registry that recognizes it. On error no
// document is returned and no file is left open.
func Open(path string, opts *Options) (*Document, error) {
	d := &Document{
		path:        path,
		opts:        opts,
		cfg:         opts.config(),
		log:         opts.logger().With("path", path),
		subscribers: make(map[int]func(Change)),
	}
	if err := d.load(); err != nil {
		return nil, err
	}

	if d.probeBaseline() {
		d.filters = filter.Config{DC: true, DCCutoff: d.cfg.Probe.HighPass}
		if err := d.activate(true); err != nil {
			d.log.Warn("Cannot enable baseline removal", "err", err)
			d.filters = filter.Config{}
		} else {
			d.log.Info("Baseline removal enabled", "cutoff", d.cfg.Probe.HighPass)
		}
	}
	d.updateLimits()
	return d, nil
}

// load (re)opens the file and rebuilds sessions, channels and markers.
func (d *Document) load() error {
	reader, f, err := d.opts.registry().Open(d.path, d.opts.formatOptions(d.log))
	if err != nil {
		return err
	}
	hdr := reader.Header()
	if len(hdr.Sessions) == 0 || hdr.NumChannels() == 0 {
		_ = reader.Close()
		return fmt.Errorf("%s: %w: no channel or session", d.path, format.ErrCorruptHeader)
	}

	session := format.PreferredSession(hdr.Sessions)
	markers, err := d.sessionMarkers(reader, hdr.Sessions[session])
	if err != nil {
		_ = reader.Close()
		return fmt.Errorf("%s: %w", d.path, err)
	}

	d.reader, d.format, d.hdr = reader, f, hdr
	d.session, d.markers = session, markers
	d.bad = make([]bool, hdr.NumChannels())
	d.aux = make([]bool, hdr.NumChannels())
	for i, ch := range hdr.Channels {
		d.bad[i] = ch.Bad
		d.aux[i] = ch.Aux && !ch.Bad
	}
	d.log.Debug("Opened recording", "format", f.Name(), "channels", hdr.NumChannels(),
		"sessions", len(hdr.Sessions), "session", d.session)
	return nil
}

// Close releases the file. Further calls return ErrClosed.
func (d *Document) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return d.reader.Close()
}

// Path is the file the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// Format is the name of the decoder that opened the file.
func (d *Document) Format() string {
	return d.format.Name()
}

// AtomType is the type of the stored samples.
func (d *Document) AtomType() format.AtomType {
	return d.hdr.AtomType
}

// ChannelCount is the number of regular channels, auxiliary ones included.
func (d *Document) ChannelCount() int {
	return d.hdr.NumChannels()
}

// TotalChannels counts the regular and derived channels.
func (d *Document) TotalChannels() int {
	return d.hdr.NumChannels() + NumDerived
}

// ChannelName returns the name of channel i, derived slots included. It is empty when i is
// out of range.
func (d *Document) ChannelName(i int) string {
	return d.TrackName(i, false)
}

// TrackName is ChannelName for the tracks of a request with the given Positive flag: the
// field power slot is "RMS" whenever it is taken from zero.
func (d *Document) TrackName(i int, positive bool) string {
	n := d.hdr.NumChannels()
	switch {
	case i >= 0 && i < n:
		return d.hdr.Channels[i].Name
	case i == n+DerivedGFP:
		if d.fromZero(positive) {
			return "RMS"
		}
		return "GFP"
	case i == n+DerivedDissimilarity:
		return "Dis"
	case i == n+DerivedAverage:
		return "Avg"
	}
	return ""
}

// Channel returns the description of regular channel i with the document flags.
func (d *Document) Channel(i int) (format.Channel, error) {
	if i < 0 || i >= d.hdr.NumChannels() {
		return format.Channel{}, fmt.Errorf("channel %d: %w", i, format.ErrOutOfRange)
	}
	ch := d.hdr.Channels[i]
	ch.Bad, ch.Aux = d.bad[i], d.aux[i]
	return ch, nil
}

// SamplingFrequency in Hz, 0 when unknown.
func (d *Document) SamplingFrequency() float64 {
	return d.hdr.SamplingFrequency
}

// TimeFrameCount is the number of time frames of the current session.
func (d *Document) TimeFrameCount() int {
	return d.hdr.Sessions[d.session].NumTimeFrames
}

// SessionCount is the number of sessions in the file.
func (d *Document) SessionCount() int {
	return len(d.hdr.Sessions)
}

// CurrentSession is the index of the current session.
func (d *Document) CurrentSession() int {
	return d.session
}

// Session returns the description of session n.
func (d *Document) Session(n int) (format.Session, error) {
	if n < 0 || n >= len(d.hdr.Sessions) {
		return format.Session{}, fmt.Errorf("session %d: %w", n, format.ErrOutOfRange)
	}
	return d.hdr.Sessions[n], nil
}

// GoToSession makes session n current. Markers are extracted again and the time display
// setting is kept.
func (d *Document) GoToSession(n int) error {
	if d.closed {
		return ErrClosed
	}
	if n < 0 || n >= len(d.hdr.Sessions) {
		return fmt.Errorf("session %d of %d: %w", n, len(d.hdr.Sessions), format.ErrOutOfRange)
	}
	markers, err := d.sessionMarkers(d.reader, d.hdr.Sessions[n])
	if err != nil {
		return err
	}
	d.session, d.markers = n, markers
	d.changed(SessionChanged)
	return nil
}

// sessionMarkers reads the native markers and keeps those of session s, relative to its first
// time frame.
func (d *Document) sessionMarkers(reader format.Reader, s format.Session) ([]format.Marker, error) {
	native, err := reader.Markers()
	if err != nil {
		return nil, fmt.Errorf("error reading markers: %w", err)
	}
	markers := make([]format.Marker, 0, len(native))
	for _, m := range native {
		m.From -= s.FirstTimeFrame
		m.To -= s.FirstTimeFrame
		if m.From < 0 || m.To < m.From || m.To >= s.NumTimeFrames {
			continue
		}
		m.Name = format.Truncate(m.Name, d.cfg.Markers.MaxName)
		markers = append(markers, m)
	}
	format.SortMarkers(markers)
	return markers, nil
}

// Markers returns the markers of the current session, in time frames relative to its start.
func (d *Document) Markers() []format.Marker {
	return slices.Clone(d.markers)
}

// StartTime is the timestamp of the first time frame of the current session, zero when unknown.
func (d *Document) StartTime() time.Time {
	s := d.hdr.Sessions[d.session]
	if !s.StartTime.IsZero() || d.hdr.StartTime.IsZero() {
		return s.StartTime
	}
	return d.hdr.StartTime.Add(d.duration(s.FirstTimeFrame))
}

// TimeOf returns the timestamp of time frame tf of the current session.
func (d *Document) TimeOf(tf int) time.Time {
	start := d.StartTime()
	if start.IsZero() {
		return start
	}
	return start.Add(d.duration(tf))
}

func (d *Document) duration(tf int) time.Duration {
	if d.hdr.SamplingFrequency <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(tf) / d.hdr.SamplingFrequency * float64(time.Second)))
}

// TimeDisplay returns the time display setting.
func (d *Document) TimeDisplay() TimeDisplay {
	return d.display
}

// SetTimeDisplay changes the time display setting. It survives session switches.
func (d *Document) SetTimeDisplay(t TimeDisplay) {
	d.display = t
}

// FormatTime renders time frame tf of the current session with the time display setting.
// Without a sampling frequency the time frame index is returned.
func (d *Document) FormatTime(tf int) string {
	if d.hdr.SamplingFrequency <= 0 {
		return fmt.Sprintf("TF %d", tf)
	}
	if d.display == Absolute {
		if t := d.TimeOf(tf); !t.IsZero() {
			return t.Format("15:04:05.000")
		}
	}
	return d.duration(tf).String()
}

// BadChannels returns the indices of the channels flagged bad.
func (d *Document) BadChannels() []int {
	return indices(d.bad)
}

// AuxChannels returns the indices of the auxiliary channels.
func (d *Document) AuxChannels() []int {
	return indices(d.aux)
}

// SetBadChannels replaces the bad channel set. A channel marked bad loses its auxiliary flag.
func (d *Document) SetBadChannels(channels []int) error {
	bad, err := d.flags(channels)
	if err != nil {
		return err
	}
	d.bad = bad
	for c, b := range bad {
		if b {
			d.aux[c] = false
		}
	}
	d.changed(ChannelsChanged)
	return nil
}

// SetAuxChannels replaces the auxiliary channel set. A channel marked auxiliary loses its bad
// flag.
func (d *Document) SetAuxChannels(channels []int) error {
	aux, err := d.flags(channels)
	if err != nil {
		return err
	}
	d.aux = aux
	for c, a := range aux {
		if a {
			d.bad[c] = false
		}
	}
	d.changed(ChannelsChanged)
	return nil
}

func (d *Document) flags(channels []int) ([]bool, error) {
	if d.closed {
		return nil, ErrClosed
	}
	out := make([]bool, d.hdr.NumChannels())
	for _, c := range channels {
		if c < 0 || c >= len(out) {
			return nil, fmt.Errorf("channel %d: %w", c, format.ErrOutOfRange)
		}
		out[c] = true
	}
	return out, nil
}

// ValidChannels flags the channels that are neither bad nor auxiliary.
func (d *Document) ValidChannels() []bool {
	valid := make([]bool, len(d.bad))
	for c := range valid {
		valid[c] = !d.bad[c] && !d.aux[c]
	}
	return valid
}

func indices(set []bool) []int {
	var out []int
	for i, ok := range set {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Reference returns the current reference.
func (d *Document) Reference() filter.Reference {
	ref := d.ref
	ref.Tracks = slices.Clone(ref.Tracks)
	return ref
}

// SetReference changes the reference subtracted from every channel.
func (d *Document) SetReference(ref filter.Reference) error {
	if d.closed {
		return ErrClosed
	}
	for _, c := range ref.Tracks {
		if c < 0 || c >= d.hdr.NumChannels() {
			return fmt.Errorf("reference channel %d: %w", c, format.ErrOutOfRange)
		}
	}
	ref.Tracks = slices.Clone(ref.Tracks)
	d.ref = ref
	d.changed(ReferenceChanged)
	return nil
}

// Filters returns the filter configuration, active or not.
func (d *Document) Filters() filter.Config {
	return d.filters.Clone()
}

// FiltersActive reports whether GetTracks applies the filter configuration.
func (d *Document) FiltersActive() bool {
	return d.active
}

// SetFilters replaces the filter configuration. Its activation state is unchanged.
func (d *Document) SetFilters(cfg filter.Config) error {
	if d.closed {
		return ErrClosed
	}
	if err := cfg.Validate(d.hdr.SamplingFrequency); err != nil {
		return err
	}
	prev := d.filters
	d.filters = cfg.Clone()
	if err := d.activate(d.active); err != nil {
		d.filters = prev
		return err
	}
	d.changed(FiltersChanged)
	return nil
}

// ActivateFilters turns the filter configuration on or off.
func (d *Document) ActivateFilters(on bool) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.activate(on); err != nil {
		return err
	}
	d.changed(FiltersChanged)
	return nil
}

func (d *Document) activate(on bool) error {
	if !on || d.filters.IsEmpty() {
		d.active, d.chain = on, nil
		return nil
	}
	chain, err := d.filters.Build(d.hdr.SamplingFrequency)
	if err != nil {
		return err
	}
	d.active, d.chain = true, chain
	return nil
}

// Revert reopens the file from disk, clears the filters and the reference and restores the
// channel flags of the file. The time display setting is kept.
func (d *Document) Revert() error {
	if d.closed {
		return ErrClosed
	}
	old := d.reader
	if err := d.load(); err != nil {
		return err
	}
	if err := old.Close(); err != nil {
		d.log.Warn("Error closing previous reader", "err", err)
	}
	d.ref = filter.Reference{}
	d.filters = filter.Config{}
	d.active, d.chain = false, nil
	d.changed(Reverted)
	return nil
}

// Subscribe registers fn to be called after every configuration change, once the limits have
// been recomputed. The returned function unregisters it.
func (d *Document) Subscribe(fn func(Change)) (cancel func()) {
	id := d.nextSub
	d.nextSub++
	d.subscribers[id] = fn
	return func() { delete(d.subscribers, id) }
}

func (d *Document) changed(c Change) {
	d.updateLimits()
	ids := make([]int, 0, len(d.subscribers))
	for id := range d.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		d.subscribers[id](c)
	}
}
