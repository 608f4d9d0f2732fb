package mesh

import (
	"github.com/nerrad567/gray-logic-mesh/internal/hub"
)

// SkipReason explains why an entity or device contributed nothing
// during classification. Skips are expected non-matches, not errors.
type SkipReason string

// Classification skip reasons.
const (
	SkipUnsupportedDomain SkipReason = "unsupported_domain"
	SkipUnsupportedClass  SkipReason = "unsupported_class"
	SkipNoState           SkipReason = "no_state"
	SkipDisabled          SkipReason = "disabled_by_registry"
	SkipEmptyName         SkipReason = "empty_name"
	SkipServiceDevice     SkipReason = "service_device"
)

// Skip records one skipped entity (or the device itself, with an empty
// entity id) and the reason.
type Skip struct {
	EntityID string
	Reason   SkipReason
}

// Classifier maps hub devices and standalone entities onto mesh device
// shapes using the ordered rule table. Classification is a pure
// function over the passed-in snapshots; the classifier itself holds
// only a logger.
type Classifier struct {
	logger Logger
}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{logger: noopLogger{}}
}

// SetLogger sets the logger for the classifier.
func (c *Classifier) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// ClassifyDevice builds the shape for one hub device from its owned
// entities and their states. It returns nil when no entity maps to a
// supported domain; a device contributing zero endpoints is never
// registered. Classifying an unchanged snapshot twice yields an
// identical shape.
func (c *Classifier) ClassifyDevice(dev *hub.Device, entities []hub.Entity, states map[string]*hub.State) (*Shape, []Skip) {
	if dev.Disabled() {
		return nil, c.skip("", SkipDisabled, dev.ID)
	}
	if dev.IsService() {
		return nil, c.skip("", SkipServiceDevice, dev.ID)
	}

	name := dev.DisplayName()
	if name == "" {
		return nil, c.skip("", SkipEmptyName, dev.ID)
	}

	shape := NewShape(dev.ID, name)
	shape.Vendor = dev.Manufacturer
	shape.Product = dev.Model

	var skips []Skip
	for i := range entities {
		snap := EntitySnapshot{Entity: entities[i], State: states[entities[i].EntityID]}
		if s := c.classifyEntity(snap, shape); s != nil {
			skips = append(skips, *s)
		}
	}

	if shape.Empty() {
		return nil, skips
	}
	return shape, skips
}

// ClassifyStandalone builds a single-endpoint shape for an entity with
// no owning device. The entity id doubles as the source id.
func (c *Classifier) ClassifyStandalone(entity hub.Entity, state *hub.State) (*Shape, []Skip) {
	snap := EntitySnapshot{Entity: entity, State: state}

	name := entity.DisplayName()
	if state != nil && state.FriendlyName() != "" {
		name = state.FriendlyName()
	}
	if name == "" {
		return nil, c.skip(entity.EntityID, SkipEmptyName, entity.EntityID)
	}

	shape := NewShape(entity.EntityID, name)
	if s := c.classifyEntity(snap, shape); s != nil {
		return nil, []Skip{*s}
	}
	if shape.Empty() {
		return nil, nil
	}
	return shape, nil
}

// classifyEntity applies the first matching rule for one entity,
// contributing device types, clusters, commands and state-derived
// defaults to the shape. Returns a non-nil skip when the entity maps to
// nothing.
func (c *Classifier) classifyEntity(e EntitySnapshot, shape *Shape) *Skip {
	if e.Entity.Disabled() {
		s := c.skip(e.Entity.EntityID, SkipDisabled, shape.SourceID)
		return &s[0]
	}
	if e.State == nil {
		s := c.skip(e.Entity.EntityID, SkipNoState, shape.SourceID)
		return &s[0]
	}

	domain := e.Domain()
	rule := matchRule(domain, e.DeviceClass(), e.StateClass())
	if rule == nil {
		reason := SkipUnsupportedDomain
		if domainHasRules(domain) {
			reason = SkipUnsupportedClass
		}
		s := c.skip(e.Entity.EntityID, reason, shape.SourceID)
		return &s[0]
	}

	ep := rule.Shape(e, shape)
	if ep == nil {
		s := c.skip(e.Entity.EntityID, SkipUnsupportedClass, shape.SourceID)
		return &s[0]
	}
	if ep.EntityID == "" {
		ep.EntityID = e.Entity.EntityID
	}
	shape.Bind(e.Entity.EntityID, ep.Name)

	if rule.Update != nil {
		for _, v := range rule.Update(e) {
			ep.SetDefault(v)
		}
	}
	return nil
}

// RuleFor returns the classification rule covering the snapshot, or
// nil. Used on the push path to reuse each rule's Update function for
// live attribute translation.
func RuleFor(e EntitySnapshot) *Rule {
	return matchRule(e.Domain(), e.DeviceClass(), e.StateClass())
}

func domainHasRules(domain string) bool {
	for i := range classificationRules {
		if classificationRules[i].Domain == domain {
			return true
		}
	}
	return false
}

func (c *Classifier) skip(entityID string, reason SkipReason, sourceID string) []Skip {
	c.logger.Debug("classification skip",
		"source_id", sourceID, "entity_id", entityID, "reason", string(reason))
	return []Skip{{EntityID: entityID, Reason: reason}}
}
