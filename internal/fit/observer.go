package fit

// Progress is a coarse-grained report emitted during a search
type Progress struct {
	Percent   int64 `json:"percent"`
	Iteration int64 `json:"iteration"`
	Committed int64 `json:"committed"`
	MaxSize   int   `json:"maxSize"`
	Done      bool  `json:"done"`
}

// Observer receives search events. The canvas passed to Frame is the live
// canvas; implementations that retain it must Clone it.
type Observer interface {
	Progress(p Progress)
	Frame(index int64, canvas *Raster)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	OnProgress func(p Progress)
	OnFrame    func(index int64, canvas *Raster)
}

func (o ObserverFuncs) Progress(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

func (o ObserverFuncs) Frame(index int64, canvas *Raster) {
	if o.OnFrame != nil {
		o.OnFrame(index, canvas)
	}
}

type nopObserver struct{}

func (nopObserver) Progress(Progress) {}
func (nopObserver) Frame(int64, *Raster) {}
