// Package scaling implements iterated reasoning over the model client.
//
// Instead of one request per message, the scheduler spends an effort
// budget of E continuation calls: the first call instructs the model
// to reason step by step and emit a termination marker when done, and
// each following call asks it to continue. The growing reasoning trace
// is carried in the request context of later calls but is never
// persisted; only the final answer survives.
//
// If the model emits the marker early the remaining budget is skipped.
// If the budget runs out without the marker, one extra forced call
// demands the final answer. Effort zero degrades to a single plain
// call with no reasoning directive.
package scaling
