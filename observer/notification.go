package observer

// EventPrefix prefixes the name of every notification.
const EventPrefix = "observer:"

// Notification is the payload emitted after an observer method ran.
//
// Data is the hook payload: a core.QueryBuilder, core.PaginateQueries,
// core.Row, []core.Row or core.Paginator depending on Type.
type Notification struct {
	Type          Method `json:"type"`
	Data          any    `json:"data"`
	Observer      string `json:"observer"`
	IsTransaction bool   `json:"isTransaction"`
}

// EventName returns the name a method's notification is emitted under.
func EventName(method Method) string {
	return EventPrefix + string(method)
}
