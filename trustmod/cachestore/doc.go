// Read-through cache for public aggregate snapshots, stored as JSON strings with a fixed TTL.
//
// Includes an interface and implementations using redis and in-process memory. Writers purge the affected keys after committing, so readers see a committed snapshot that may briefly lag the database.
package cachestore
