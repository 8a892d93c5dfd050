// Package protocol centralizes the fixed response strings the upstream
// API uses as an informal status protocol. The strings are a compatibility
// contract and must be matched verbatim, independently of HTTP status
// codes: a 200 response can still carry an auth sentinel.
package protocol

// Sentinel messages, exactly as the server emits them (mixed French and
// English, historical).
const (
	MsgUserNotFound       = "User not found"
	MsgNoAuthToken        = "No auth token provided"
	MsgDuplicateCode      = "Le Code d'activité est déjà utilisé par une autre activité."
	MsgDuplicateName      = "Un utilisateur existe déjà avec ce nom."
	MsgDuplicatePair      = "Un utilisateur existe déjà avec ce code et codeCentre."
	MsgChercheurCreated   = "Chercheur créé avec succès"
	MsgAxesRetrieved      = "AXEs retrieved successfully"
	MsgActivitesRetrieved = "ACTIVITEs retrieved successfully"
	MsgAllowed            = "allowed"
	MsgLogCreated         = "Activity log created successfully."

	// Login status field values: rejected credentials and a confirmed
	// token validation.
	StatusNonLoged = "nonloged"
	StatusLogged   = "logged"
)

// Kind classifies a sentinel for the error taxonomy: auth sentinels force
// a credential wipe and a login redirect, conflicts are surfaced verbatim
// inline, successes unwrap their payload.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindConflict
	KindSuccess
)

var table = map[string]Kind{
	MsgUserNotFound:       KindAuth,
	MsgNoAuthToken:        KindAuth,
	MsgDuplicateCode:      KindConflict,
	MsgDuplicateName:      KindConflict,
	MsgDuplicatePair:      KindConflict,
	MsgChercheurCreated:   KindSuccess,
	MsgAxesRetrieved:      KindSuccess,
	MsgActivitesRetrieved: KindSuccess,
	MsgAllowed:            KindSuccess,
	MsgLogCreated:         KindSuccess,
}

// Classify returns the kind of a server message, or KindUnknown for
// anything outside the sentinel table.
func Classify(message string) Kind {
	return table[message]
}

// IsAuthSentinel reports whether the message signals a missing or
// rejected session.
func IsAuthSentinel(message string) bool {
	return table[message] == KindAuth
}
