package ports

import "mythicforge/internal/domain/forge"

type ForgeMetrics interface {
	RecordAccepted()
	RecordRejected(code string)
	RecordEnded(state forge.State, reason forge.Reason)
	RecordSettlement(kind ObligationKind, ok bool)
	RecordTick(active int)
}
