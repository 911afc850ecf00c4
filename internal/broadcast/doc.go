// Package broadcast runs one update cycle: fetch links, render the update and
// deliver it to every destination group.
//
// Each group is attempted independently. When a group send fails, the admins
// are tried in order with a copy of the message and the first successful
// delivery ends the fallback. A cycle never panics to its caller.
package broadcast
