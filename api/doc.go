// Package api is the thin REST collaborator the realtime core consumes:
// it persists mutations into the game store and feeds the resulting
// authoritative STATE_DELTA back into the room broadcast. Business
// validation (team rules, geofencing, schema checks) lives outside this
// repository; the handlers here only check structure.
package api
