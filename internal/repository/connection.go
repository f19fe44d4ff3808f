package repository

import (
	"github.com/wemet/relay-server-go/internal/model"
)

// ConnectionRepository is the registry of connections that have issued at
// least one match request. Implementations are not safe for concurrent use;
// callers serialize access.
type ConnectionRepository interface {
	Put(conn *model.Connection)
	Get(id string) (*model.Connection, bool)
	Remove(id string)
	Count() int
	CountPaired() int
}

type connectionRepo struct {
	conns map[string]*model.Connection
}

func NewConnectionRepository() ConnectionRepository {
	return &connectionRepo{conns: make(map[string]*model.Connection)}
}

func (r *connectionRepo) Put(conn *model.Connection) {
	r.conns[conn.ID] = conn
}

func (r *connectionRepo) Get(id string) (*model.Connection, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

func (r *connectionRepo) Remove(id string) {
	delete(r.conns, id)
}

func (r *connectionRepo) Count() int {
	return len(r.conns)
}

func (r *connectionRepo) CountPaired() int {
	count := 0
	for _, c := range r.conns {
		if c.Paired() {
			count++
		}
	}
	return count
}
