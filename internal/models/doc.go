// Package models defines the core domain models for the game night backend.
//
// # Models
//
//   - User: a registered account; memberships reference user IDs
//   - Group: a recurring game night with a schedule, invite code, and admin
//   - Membership: (user, group) edge carrying the admin flag
//   - Occurrence: one concrete calendar instance of a group's schedule
//   - AttendanceResponse: one member's going/maybe/not-going answer
//
// # Design Principles
//
//  1. **ID strings instead of pointers**: relationships are held as ID strings
//     to avoid circular references; joins happen at the storage layer.
//  2. **Group owns everything**: memberships, occurrences, and responses never
//     outlive their group. Deleting a group cascades.
//  3. **Denormalized member_count**: groups carry a member counter kept in sync
//     by the storage layer's transactions, trading costlier writes for cheap
//     reads. No code path outside those transactions may touch it.
//  4. **Unix timestamps**: audit fields are unix seconds (int64), assigned by
//     the storage layer when zero.
package models
