/*
pipe allows to run pipelines of stages with flow control, on a single cooperative loop.

A stage accepts units from its upstream, runs them through a middleware, and forwards the results to a single
downstream. Stages are wired with Pipe, which handles backpressure:

- When a stage has too many pending units (see WithLimit), Accept returns false and the upstream pauses.
- A paused stage also pauses its own upstream, so a saturated tail stops the whole chain.
- Once the pending units fall to a third of the limit, the stage emits drain and its upstream resumes. The
  margin keeps stages from flapping around the limit.
- End travels downstream: each stage finishes its pending work, then ends its downstream. Only the last stage
  of a chain emits close.

Several kinds of stage are provided:

- Sink and Passthrough, lightweight stages draining only when idle.
- Smart, the full featured stage, with synchronous or asynchronous middleware and a preload hook.
- Batch, which combines consecutive units.
- Split, which breaks a unit into several fragments.

Stages never block and are not safe for concurrent use: every callback runs on the Loop. Work that must run
elsewhere is offloaded to Workers, a goroutine pool whose results are posted back to the loop. Submitting to a
saturated pool does block, so a stage offloading its work keeps its limit within the pool size.
*/

package pipe
