package core

// VersionNumber is a monotonically increasing snapshot counter over
// external inputs. The caller introduces a new one whenever it declares
// that external state has changed; the engine never advances it on its own.
type VersionNumber uint64

// VersionEpoch is a generation counter scoped to one engine instance. It
// exists purely to let the store discard UpdateComputed messages sent by
// tasks that outlived the epoch they were spawned in (invariant I4).
type VersionEpoch uint64
