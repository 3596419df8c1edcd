package core

import "github.com/hireloop/collab/internal/domain"

// clientSession implements ClientSession by pairing identity + transport.
type clientSession struct {
	id       ConnectionID
	identity domain.Identity
	conn     SignalConnection
}

func NewClientSession(id ConnectionID, identity domain.Identity, conn SignalConnection) ClientSession {
	return &clientSession{id: id, identity: identity, conn: conn}
}

func (s *clientSession) ID() ConnectionID          { return s.id }
func (s *clientSession) Identity() domain.Identity { return s.identity }
func (s *clientSession) Signal() SignalConnection  { return s.conn }
