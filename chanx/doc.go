// Package chanx composes [bchan.Chan] with native channels and with other
// bchan channels.
//
//   - [Drain]: receive and discard until the channel is closed and drained.
//   - [ToChan] and [FromChan]: bridge to and from native Go channels, for
//     use in select statements and existing pipelines.
//   - [Broadcast]: N independent readers of everything sent from now on.
//   - [Merge]: fan-in of several channels into one, closing it when all
//     inputs are drained.
//   - [SendBatch] and [RecvBatch]: move several values per call.
//
// No helper ever drops an item it has taken. A value received from a
// [bchan.Chan] that cannot be delivered is put back with
// [bchan.Chan.Requeue], which keeps it even if the channel has been closed
// since; a value taken from a native channel is returned in an
// [UndeliveredError].
package chanx
