// Package permissions decides whether a user may act on a resource.
// Admins bypass all checks; everyone else is held to the per-resource
// permission map. Levels order none < read < write < execute.
package permissions

import (
	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/store"
)

// LevelFor returns the effective permission level a user holds on a record.
func LevelFor(user api.RequestUser, rec *store.Record) api.PermissionLevel {
	if user.Admin {
		return api.PermissionExecute
	}
	level, ok := rec.Permissions[user.ID]
	if !ok {
		return api.PermissionNone
	}
	return level
}

// Check returns a PermissionDenied error unless the user holds at least
// the required level on the record.
func Check(user api.RequestUser, rec *store.Record, required api.PermissionLevel) error {
	if LevelFor(user, rec).Satisfies(required) {
		return nil
	}
	return api.PermissionDeniedf("user does not have %s permission on %s %s", required, rec.Kind, rec.Name)
}

// CanRead reports whether the record should appear in list results for
// the user.
func CanRead(user api.RequestUser, rec *store.Record) bool {
	return LevelFor(user, rec).Satisfies(api.PermissionRead)
}

// CheckCreate gates resource creation. Admins create anything; regular
// users need the matching account flag, which only exists for servers
// and builds.
func CheckCreate(user api.RequestUser, fullUser *api.User, kind api.ResourceKind) error {
	if user.Admin {
		return nil
	}
	switch kind {
	case api.KindServer:
		if fullUser.CreateServers {
			return nil
		}
	case api.KindBuild:
		if fullUser.CreateBuilds {
			return nil
		}
	}
	return api.PermissionDeniedf("user is not permitted to create %ss", kind)
}

// CheckAdmin gates admin-only operations.
func CheckAdmin(user api.RequestUser) error {
	if user.Admin {
		return nil
	}
	return api.PermissionDeniedf("this call is admin only")
}
