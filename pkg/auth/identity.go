package auth

import (
	"fmt"
	"os"
	"os/user"
	"slices"
)

// Identity describes who is asking for privileges and for whom.
//
// It feeds prompt expansion and the approval exemption rules. The CLI
// resolves it once per invocation with LookupIdentity.
type Identity struct {
	// User is the invoking user's login name.
	User string

	// UID is the invoking user's numeric ID.
	UID string

	// Groups are the names of the invoking user's groups, primary first.
	Groups []string

	// TargetUser is the user the command runs as.
	TargetUser string

	// Host is the short host name; FQDN the fully qualified one when known.
	Host string
	FQDN string
}

// LookupIdentity resolves the invoking user (or name, when non-empty) from
// the system user database. Group names that cannot be resolved are skipped.
func LookupIdentity(name, target string) (*Identity, error) {
	var (
		u   *user.User
		err error
	)
	if name == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(name)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	id := &Identity{
		User:       u.Username,
		UID:        u.Uid,
		TargetUser: target,
	}
	if id.TargetUser == "" {
		id.TargetUser = "root"
	}

	if gids, err := u.GroupIds(); err == nil {
		if i := slices.Index(gids, u.Gid); i > 0 {
			gids[0], gids[i] = gids[i], gids[0]
		}
		for _, gid := range gids {
			if g, err := user.LookupGroupId(gid); err == nil {
				id.Groups = append(id.Groups, g.Name)
			}
		}
	}

	if host, err := os.Hostname(); err == nil {
		id.FQDN = host
		id.Host = shortHost(host)
	}
	return id, nil
}

// PromptVars returns the prompt expansion values for this identity.
func (id *Identity) PromptVars() PromptVars {
	return PromptVars{
		User:       id.User,
		TargetUser: id.TargetUser,
		Host:       id.Host,
		FQDN:       id.FQDN,
	}
}

// Exempt reports whether the identity is exempt from waivable approval
// checks, by user name or by membership in one of groups.
func (id *Identity) Exempt(users, groups []string) bool {
	if id == nil {
		return false
	}
	if slices.Contains(users, id.User) {
		return true
	}
	for _, g := range id.Groups {
		if slices.Contains(groups, g) {
			return true
		}
	}
	return false
}
