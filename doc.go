/*
Package eventgroup provides the in-memory data model of an observability
pipeline: batches of log, metric and span events that share one Arena, plus
the stages that move those batches around.

  - `eventgroup.Arena` - chunked allocator that owns the bytes of every string
    stored in a group; events only hold `StringView`s into it
  - `eventgroup.EventGroup` - events plus group metadata and group tags, with a
    JSON codec (`ToJSON`, `FromJSON`)
  - `eventgroup.Queue` - bounded hand-off between pipeline stages
  - `eventgroup.Client` - writes groups to a Fluent server, using
    `eventgroup.Encoder`s from a shared `EncoderPool`
  - `eventgroup.Handler` - collects `log/slog` records into groups
    (implements `slog.Handler`)

Stages are coupled only via the `Sink` interface, so a Handler can feed a
Queue, which can in turn Forward into a Client.

Examples of efficiency optimizations:

  - strings are copied into the group arena once, and every later read,
    including JSON and msgpack encoding, works off views into it
  - the `NoCopy` setters store views that already point into the arena
    without allocating
  - `SwapEvents` moves the event list out of a group without copying any
    event
  - shared encoders/buffers, with message preludes encoded only once per
    `EncoderPool`
*/
package eventgroup
