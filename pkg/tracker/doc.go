package tracker

/*
Leader discovery is handled with two distinct parts:
- tracker.NodeTracker which owns one path in the coordination store, keeps a cache of its content in step with store
  events, and lets callers block until the content appears.
- tracker.LeaderTracker which binds a NodeTracker to the leader znode and decodes the payload on demand.

Publication does not go through a tracker.  An elected process calls PublishLeaderAddress directly against the store,
and a process that wants a point-in-time answer without a live subscription calls FetchLeaderAddress.  The tracker is
only for processes that need to keep answering "who is the leader" cheaply.
*/
