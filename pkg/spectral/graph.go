package spectral

import (
	"slices"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Subscriber is notified after a light's output has been recomputed. out is
// a copy owned by the subscriber.
type Subscriber func(name string, out *Distribution)

type node struct {
	dist    *Distribution
	light   bool
	source  string
	filters []string
}

func (n *node) inputs() []string {
	if !n.light {
		return nil
	}
	return append([]string{n.source}, n.filters...)
}

// Graph composes light sources with chains of filters. Each light node
// derives its output as source × Π filters. Leaves (plain distributions) are
// edited through SetData and SetValue; every light depending on them is
// recomputed in topological order through a single entry point, and
// subscribers are called only once the whole recompute has finished.
//
// Lights may use other lights as source or filter. Compositions that would
// make a light depend on itself are rejected with ErrCycle.
type Graph struct {
	mu    sync.Mutex
	nodes map[string]*node
	subs  map[string][]Subscriber
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
		subs:  make(map[string][]Subscriber),
	}
}

// AddDistribution registers a leaf distribution. d is copied.
func (g *Graph) AddDistribution(name string, d *Distribution) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[name]; ok {
		return pkgerrors.Errorf("distribution %q already exists", name)
	}
	g.nodes[name] = &node{dist: d.Clone()}
	return nil
}

// AddLight registers a light whose output is source filtered by filters.
func (g *Graph) AddLight(name, source string, filters ...string) error {
	g.mu.Lock()
	if _, ok := g.nodes[name]; ok {
		g.mu.Unlock()
		return pkgerrors.Errorf("distribution %q already exists", name)
	}
	if err := g.checkInputs(name, source, filters); err != nil {
		g.mu.Unlock()
		return err
	}
	n := &node{light: true}
	n.wire(source, filters, g.nodes[source].dist)
	g.nodes[name] = n
	notify := g.recompute(map[string]change{name: {full: true}}, name)
	g.mu.Unlock()

	g.notify(notify)
	return nil
}

// Rewire replaces the source and filters of an existing light. Lights that
// depend on it must still be coverable on the new range, otherwise the graph
// is left unchanged.
func (g *Graph) Rewire(name, source string, filters ...string) error {
	g.mu.Lock()
	n, ok := g.nodes[name]
	if !ok || !n.light {
		g.mu.Unlock()
		return pkgerrors.Wrapf(ErrUnknownNode, "light %q", name)
	}
	if err := g.checkInputs(name, source, filters); err != nil {
		g.mu.Unlock()
		return err
	}
	if err := g.checkDependents(name, g.nodes[source].dist); err != nil {
		g.mu.Unlock()
		return err
	}
	n.wire(source, filters, g.nodes[source].dist)
	notify := g.recompute(map[string]change{name: {full: true}}, name)
	g.mu.Unlock()

	g.notify(notify)
	return nil
}

func (n *node) wire(source string, filters []string, src *Distribution) {
	n.source = source
	n.filters = append([]string(nil), filters...)
	n.dist = src.Clone()
}

// checkInputs validates the inputs of light name. Must hold g.mu.
func (g *Graph) checkInputs(name, source string, filters []string) error {
	inputs := append([]string{source}, filters...)
	for _, in := range inputs {
		if in == name || g.dependsOn(in, name) {
			return pkgerrors.Wrapf(ErrCycle, "%q cannot take %q as input", name, in)
		}
		if _, ok := g.nodes[in]; !ok {
			return pkgerrors.Wrapf(ErrUnknownNode, "%q", in)
		}
	}
	src := g.nodes[source].dist
	for _, f := range filters {
		if fd := g.nodes[f].dist; !src.Covers(fd) {
			return rangeMismatch(f, fd, source, src)
		}
	}
	return nil
}

// checkDependents verifies that every light downstream of name still has
// covering filters once name takes the range of grid. A light's range follows
// its source, so the new range is carried down the chain. Must hold g.mu.
func (g *Graph) checkDependents(name string, grid *Distribution) error {
	planned := map[string]*Distribution{name: grid}
	rangeOf := func(in string) *Distribution {
		if d, ok := planned[in]; ok {
			return d
		}
		return g.nodes[in].dist
	}
	for _, dep := range g.topoOrder() {
		n := g.nodes[dep]
		if !n.light || dep == name || !g.dependsOn(dep, name) {
			continue
		}
		src := rangeOf(n.source)
		for _, f := range n.filters {
			if fd := rangeOf(f); !src.Covers(fd) {
				return pkgerrors.Wrapf(rangeMismatch(f, fd, n.source, src), "light %q depends on %q", dep, name)
			}
		}
		planned[dep] = src
	}
	return nil
}

func rangeMismatch(filter string, fd *Distribution, source string, src *Distribution) error {
	return pkgerrors.Wrapf(ErrRangeMismatch, "filter %q (%d-%d/%d nm) cannot cover source %q (%d-%d/%d nm)",
		filter, fd.first, fd.last, fd.step, source, src.first, src.last, src.step)
}

// dependsOn reports whether from transitively takes target as input.
func (g *Graph) dependsOn(from, target string) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		n, ok := g.nodes[cur]
		if !ok {
			continue
		}
		for _, in := range n.inputs() {
			if in == target {
				return true
			}
			stack = append(stack, in)
		}
	}
	return false
}

// SetData replaces every sample of a leaf and fully recomputes its dependents.
func (g *Graph) SetData(name string, data []float64) error {
	g.mu.Lock()
	n, err := g.leaf(name)
	if err == nil {
		err = n.dist.SetData(data)
	}
	if err != nil {
		g.mu.Unlock()
		return err
	}
	notify := g.recompute(map[string]change{name: {full: true}}, name)
	g.mu.Unlock()

	g.notify(notify)
	return nil
}

// SetValue edits a single sample of a leaf. Dependent lights only update the
// affected wavelength.
func (g *Graph) SetValue(name string, w int, v float64) error {
	g.mu.Lock()
	n, err := g.leaf(name)
	if err == nil {
		err = n.dist.SetValue(w, v)
	}
	if err != nil {
		g.mu.Unlock()
		return err
	}
	notify := g.recompute(map[string]change{name: {wavelength: w}}, name)
	g.mu.Unlock()

	g.notify(notify)
	return nil
}

func (g *Graph) leaf(name string) (*node, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrUnknownNode, "%q", name)
	}
	if n.light {
		return nil, pkgerrors.Errorf("%q is a derived light and cannot be edited directly", name)
	}
	return n, nil
}

// Output returns a copy of a node's current distribution.
func (g *Graph) Output(name string) (*Distribution, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[name]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrUnknownNode, "%q", name)
	}
	return n.dist.Clone(), nil
}

// Subscribe registers fn to be called whenever the light name is recomputed.
func (g *Graph) Subscribe(name string, fn Subscriber) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs[name] = append(g.subs[name], fn)
}

type change struct {
	full       bool
	wavelength int
}

type notification struct {
	name string
	out  *Distribution
	subs []Subscriber
}

// recompute propagates changes from origin to every dependent light in
// topological order. If origin is itself a light it is recomputed first.
// Must hold g.mu; returns the notifications to deliver after unlocking.
func (g *Graph) recompute(changed map[string]change, origin string) []notification {
	order := g.topoOrder()
	var out []notification
	for _, name := range order {
		n := g.nodes[name]
		if !n.light {
			continue
		}

		c, self := changed[name]
		if !self || name != origin {
			c = change{}
			hit := false
			for _, in := range n.inputs() {
				ic, ok := changed[in]
				if !ok {
					continue
				}
				if !hit {
					c, hit = ic, true
				} else if ic.full || ic.wavelength != c.wavelength {
					c.full = true
				}
			}
			if !hit {
				continue
			}
		}

		if !c.full && n.dist.index(c.wavelength) < 0 {
			c.full = true
		}
		if c.full {
			g.computeAll(n)
		} else {
			g.computeAt(n, c.wavelength)
		}
		changed[name] = c

		logrus.WithFields(logrus.Fields{
			"light":       name,
			"incremental": !c.full,
		}).Trace("recomputed light output")

		if subs := g.subs[name]; len(subs) > 0 {
			out = append(out, notification{name: name, out: n.dist.Clone(), subs: slices.Clone(subs)})
		}
	}
	return out
}

// computeAll also moves n onto its source's range when that has changed.
func (g *Graph) computeAll(n *node) {
	src := g.nodes[n.source].dist
	if !n.dist.SameRange(src) {
		n.dist = src.Clone()
	}
	for i := range n.dist.data {
		n.dist.data[i] = g.product(n, src, n.dist.Wavelength(i))
	}
}

func (g *Graph) computeAt(n *node, w int) {
	n.dist.data[n.dist.index(w)] = g.product(n, g.nodes[n.source].dist, w)
}

func (g *Graph) product(n *node, src *Distribution, w int) float64 {
	v := src.ValueAt(w)
	for _, f := range n.filters {
		v *= g.nodes[f].dist.ValueAt(w)
	}
	return v
}

// topoOrder returns every node after all of its inputs. Names are visited in
// sorted order so the result is deterministic.
func (g *Graph) topoOrder() []string {
	names := make([]string, 0, len(g.nodes))
	for k := range g.nodes {
		names = append(names, k)
	}
	slices.Sort(names)

	visited := make(map[string]bool, len(names))
	order := make([]string, 0, len(names))
	var visit func(string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, in := range g.nodes[name].inputs() {
			visit(in)
		}
		order = append(order, name)
	}
	for _, name := range names {
		visit(name)
	}
	return order
}

func (g *Graph) notify(ns []notification) {
	for _, n := range ns {
		for _, fn := range n.subs {
			fn(n.name, n.out)
		}
	}
}
