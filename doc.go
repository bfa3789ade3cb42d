package tinytxn

/*
TinyTxn is a small transactional key/value core intended for teaching and experimentation. It demonstrates, on one
in-memory store, the two classic strategies for resolving write-write conflicts between concurrent multi-key
transactions: pessimistic locking with bounded waits and wait-for-graph deadlock detection, and optimistic concurrency
control with commit-time validation and full restart on conflict.

Building TinyTxn produces one executable, txn-demo, which seeds a set of account records and runs concurrent deposit
workers over them in opposite key orders to provoke conflicts, printing the before/after state of every record and the
outcome of each worker.

The `tinytxn` module is organized into the following packages:

* `kv/kvstore`: the in-memory ordered key/value store of Records, with no transaction semantics of its own.
* `kv/transaction`: the concurrency-control layer; the Coordinator, the Txn handle, and the two conflict-resolution
  strategies in its `locks` and `occ` sub-packages.
* `kv/util/lockwaiter`: parking and wakeup of transactions blocked on a lock holder.
* `kv/workload`: the concurrent deposit workers used by the demo and the integration tests.
* `kv/config`: TOML configuration for the demo binary.
*/
