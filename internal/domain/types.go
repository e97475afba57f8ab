package domain

import "github.com/google/uuid"

type UserID = uuid.UUID
type DeviceID = uuid.UUID
type CredentialID = uuid.UUID
type LocationID = uuid.UUID
type CommandID = uuid.UUID
