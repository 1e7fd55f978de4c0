package broker

// PaperBroker mimics live order flow without touching an exchange. It
// shares the simulated fill engine but reports the paper backend, which
// keeps it out of training and validation runs.
type PaperBroker struct {
	*SimBroker
}

func NewPaper(cfg SimConfig) *PaperBroker {
	return &PaperBroker{SimBroker: NewSim(cfg)}
}

func (b *PaperBroker) Backend() Backend { return BackendPaper }
