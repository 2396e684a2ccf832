package proxy

import (
	"github.com/mesh-intelligence/entrack/pkg/types"
)

// endpoint is a slot that can hold a reference to a peer: a reference
// scalar or a reference collection. link and unlink are idempotent, which
// is what stops mirroring from bouncing between the two ends forever.
type endpoint interface {
	link(peer *entity) error
	unlink(peer *entity) error
}

// inverseEnd returns the slot on peer that pairs with def.
func inverseEnd(peer *entity, def *types.PropertyDef) endpoint {
	if s, ok := peer.scalars[def.Inverse]; ok {
		return s
	}
	return peer.colls[def.Inverse]
}

// mirrorLink makes peer's inverse slot reference owner after owner's slot
// def gained a reference to peer.
func (c *Context) mirrorLink(owner *entity, def *types.PropertyDef, peer *entity) error {
	c.logger.Debug("mirror link",
		"from", owner.id, "property", def.Name,
		"to", peer.id, "inverse", def.Inverse)
	return inverseEnd(peer, def).link(owner)
}

// mirrorUnlink drops owner from peer's inverse slot after owner's slot def
// lost its reference to peer.
func (c *Context) mirrorUnlink(owner *entity, def *types.PropertyDef, peer *entity) error {
	c.logger.Debug("mirror unlink",
		"from", owner.id, "property", def.Name,
		"to", peer.id, "inverse", def.Inverse)
	return inverseEnd(peer, def).unlink(owner)
}
