// Package coauthors provides guest-author search and creation on top of a
// pluggable content store.
//
// A guest author is a post-backed pseudo-user: an author byline that has no
// login account. The Service exposes two operations, SearchAuthors and
// CreateGuestAuthor, and delegates persistence to a Repository (in-memory or
// Postgres implementations live under repo/) and avatar lookup to an
// AvatarResolver.
//
// # Post Meta
//
// Guest author attributes are stored as post meta under keys prefixed with
// "cap-" (see MetaKey). The login is also mirrored into the author taxonomy
// term so that search can match it alongside registered users.
package coauthors
