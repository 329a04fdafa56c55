package session

const (
	LoginPath     = "/auth/login"
	ReaderPath    = "/reader"
	LibrarianPath = "/librarian"
)

type Decision struct {
	Allowed bool
	// Redirect is where a denied user is sent.
	Redirect string
}

func LandingArea(role Role) string {
	if role == RoleLibrarian || role == RoleAdmin {
		return LibrarianPath
	}
	return ReaderPath
}

// Authorize permits access iff there is a session and its role is one of roles.
func Authorize(sess *Session, roles ...Role) Decision {
	if sess == nil {
		return Decision{Redirect: LoginPath}
	}
	for _, r := range roles {
		if sess.User.Role == r {
			return Decision{Allowed: true}
		}
	}
	return Decision{Redirect: LandingArea(sess.User.Role)}
}

// RedirectIfAuthenticated keeps signed-in users away from the login and register pages.
func RedirectIfAuthenticated(sess *Session) Decision {
	if sess == nil {
		return Decision{Allowed: true}
	}
	return Decision{Redirect: LandingArea(sess.User.Role)}
}
