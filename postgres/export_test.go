package postgres

// EventsQuery exposes eventsQuery to the external test package.
var EventsQuery = eventsQuery
