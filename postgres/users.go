// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/lib/pq"
)

const (
	userColumns       = "id, username, first_name, last_name, email, is_superuser, permissions, password_hash"
	groupColumns      = "id, name, display_name, mailing_list, invite_only, visible, members"
	repositoryColumns = "id, name, path, mirror_path, tool, public, users"
)

// scanner is the common part of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*reviews.User, error) {
	var u reviews.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName,
		&u.Email, &u.IsSuperuser, pq.Array(&u.Permissions), &u.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanGroup(row scanner) (*reviews.Group, error) {
	var g reviews.Group
	err := row.Scan(&g.ID, &g.Name, &g.DisplayName, &g.MailingList,
		&g.InviteOnly, &g.Visible, pq.Array(&g.Members))
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanRepository(row scanner) (*reviews.Repository, error) {
	var r reviews.Repository
	err := row.Scan(&r.ID, &r.Name, &r.Path, &r.MirrorPath, &r.Tool,
		&r.Public, pq.Array(&r.Users))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// likePrefix returns a LIKE pattern matching strings that start with
// prefix.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// User fetches a user by name.
func (s *Store) User(username string) (*reviews.User, error) {
	var u *reviews.User
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+userColumns+" FROM account WHERE username=$1", username)
		u, err = scanUser(row)
		return
	})
	return u, notFoundIfNoRows(err, reviews.KindUser, username)
}

// Users returns the users matching a query, sorted by username.
func (s *Store) Users(q reviews.UserQuery) ([]*reviews.User, error) {
	params := queryParams{}
	var conditions []string
	if q.Usernames != nil {
		conditions = append(conditions, "username = ANY("+params.Param(pq.Array(q.Usernames))+")")
	}
	if q.Prefix != "" {
		conditions = append(conditions, "username ILIKE "+params.Param(likePrefix(q.Prefix)))
	}
	if q.FullName != "" {
		p := params.Param(likePrefix(q.FullName))
		conditions = append(conditions, "(first_name ILIKE "+p+
			" OR last_name ILIKE "+p+
			" OR (first_name || ' ' || last_name) ILIKE "+p+")")
	}
	query := buildSelect([]string{userColumns}, []string{"account"}, conditions) +
		" ORDER BY username"
	var result []*reviews.User
	err := s.queryAndScan(query, params, func(rows *sql.Rows) error {
		u, err := scanUser(rows)
		if err == nil {
			result = append(result, u)
		}
		return err
	})
	return result, err
}

// CreateUser stores a new user.  It returns reviews.ErrDuplicate if
// the username is taken.
func (s *Store) CreateUser(u *reviews.User) error {
	params := queryParams{}
	fields := fieldList{}
	fields.Add(&params, "username", u.Username)
	fields.Add(&params, "first_name", u.FirstName)
	fields.Add(&params, "last_name", u.LastName)
	fields.Add(&params, "email", u.Email)
	fields.Add(&params, "is_superuser", u.IsSuperuser)
	fields.Add(&params, "permissions", pq.Array(u.Permissions))
	fields.Add(&params, "password_hash", u.PasswordHash)
	query := fields.InsertStatement("account") +
		" ON CONFLICT (username) DO NOTHING RETURNING id"
	err := s.withTx(false, func(tx *sql.Tx) error {
		return tx.QueryRow(query, params...).Scan(&u.ID)
	})
	if err == sql.ErrNoRows {
		return reviews.ErrDuplicate
	}
	return err
}

// Group fetches a group by name.
func (s *Store) Group(name string) (*reviews.Group, error) {
	var g *reviews.Group
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+groupColumns+" FROM review_group WHERE name=$1", name)
		g, err = scanGroup(row)
		return
	})
	return g, notFoundIfNoRows(err, reviews.KindGroup, name)
}

// GroupByID fetches a group by ID.
func (s *Store) GroupByID(id int) (*reviews.Group, error) {
	var g *reviews.Group
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+groupColumns+" FROM review_group WHERE id=$1", id)
		g, err = scanGroup(row)
		return
	})
	return g, notFoundIfNoRows(err, reviews.KindGroup, id)
}

// Groups returns the groups matching a query, sorted by name.
func (s *Store) Groups(q reviews.GroupQuery) ([]*reviews.Group, error) {
	params := queryParams{}
	var conditions []string
	if q.Prefix != "" {
		p := params.Param(likePrefix(q.Prefix))
		if q.DisplayName {
			conditions = append(conditions, "(name ILIKE "+p+" OR display_name ILIKE "+p+")")
		} else {
			conditions = append(conditions, "name ILIKE "+p)
		}
	}
	if q.NameOrDisplayName != "" {
		p := params.Param(q.NameOrDisplayName)
		conditions = append(conditions, "(LOWER(name)=LOWER("+p+") OR LOWER(display_name)=LOWER("+p+"))")
	}
	query := buildSelect([]string{groupColumns}, []string{"review_group"}, conditions) +
		" ORDER BY name"
	var result []*reviews.Group
	err := s.queryAndScan(query, params, func(rows *sql.Rows) error {
		g, err := scanGroup(rows)
		if err == nil {
			result = append(result, g)
		}
		return err
	})
	return result, err
}

// CreateGroup stores a new group.  It returns reviews.ErrDuplicate if
// the name is taken.
func (s *Store) CreateGroup(g *reviews.Group) error {
	params := queryParams{}
	fields := fieldList{}
	fields.Add(&params, "name", g.Name)
	fields.Add(&params, "display_name", g.DisplayName)
	fields.Add(&params, "mailing_list", g.MailingList)
	fields.Add(&params, "invite_only", g.InviteOnly)
	fields.Add(&params, "visible", g.Visible)
	fields.Add(&params, "members", pq.Array(g.Members))
	query := fields.InsertStatement("review_group") +
		" ON CONFLICT (name) DO NOTHING RETURNING id"
	err := s.withTx(false, func(tx *sql.Tx) error {
		return tx.QueryRow(query, params...).Scan(&g.ID)
	})
	if err == sql.ErrNoRows {
		return reviews.ErrDuplicate
	}
	return err
}

// Repository fetches a repository by ID.
func (s *Store) Repository(id int) (*reviews.Repository, error) {
	var r *reviews.Repository
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+repositoryColumns+" FROM repository WHERE id=$1", id)
		r, err = scanRepository(row)
		return
	})
	return r, notFoundIfNoRows(err, reviews.KindRepository, id)
}

// RepositoryByPath fetches a repository by its path or mirror path.
func (s *Store) RepositoryByPath(path string) (*reviews.Repository, error) {
	var r *reviews.Repository
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+repositoryColumns+" FROM repository "+
			"WHERE path=$1 OR (mirror_path<>'' AND mirror_path=$1) "+
			"ORDER BY id LIMIT 1", path)
		r, err = scanRepository(row)
		return
	})
	return r, notFoundIfNoRows(err, reviews.KindRepository, path)
}

// Repositories returns all repositories in ID order.
func (s *Store) Repositories() ([]*reviews.Repository, error) {
	var result []*reviews.Repository
	query := "SELECT " + repositoryColumns + " FROM repository ORDER BY id"
	err := s.queryAndScan(query, nil, func(rows *sql.Rows) error {
		r, err := scanRepository(rows)
		if err == nil {
			result = append(result, r)
		}
		return err
	})
	return result, err
}

// CreateRepository stores a new repository.
func (s *Store) CreateRepository(r *reviews.Repository) error {
	params := queryParams{}
	fields := fieldList{}
	fields.Add(&params, "name", r.Name)
	fields.Add(&params, "path", r.Path)
	fields.Add(&params, "mirror_path", r.MirrorPath)
	fields.Add(&params, "tool", r.Tool)
	fields.Add(&params, "public", r.Public)
	fields.Add(&params, "users", pq.Array(r.Users))
	query := fields.InsertStatement("repository") + " RETURNING id"
	return s.withTx(false, func(tx *sql.Tx) error {
		return tx.QueryRow(query, params...).Scan(&r.ID)
	})
}
