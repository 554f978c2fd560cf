package model

import "time"

// Production represents a show production owned by an operator. Events
// and signup forms both hang off a production. This struct corresponds
// to a row in the `productions` table.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user ID of the operator who owns the production.
//  Name      – unique production name per owner.
//  CreatedAt – timestamp when the production was created.
//  UpdatedAt – timestamp of last update.
type Production struct {
	ID        uint64    // productions.id
	OwnerID   uint64    // productions.owner_id
	Name      string    // productions.name
	CreatedAt time.Time // productions.created_at
	UpdatedAt time.Time // productions.updated_at
}
