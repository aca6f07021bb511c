package geom

import "encoding/json"

// Coedge is a directed boundary segment of a face, identified by a topology path.
type Coedge struct {
	ID    string
	Curve Curve
}

func (c Coedge) Reverse() Coedge {
	return Coedge{ID: c.ID, Curve: c.Curve.Reverse()}
}

type coedgeJSON struct {
	ID    string      `json:"id"`
	Curve CurveRecord `json:"curve"`
}

func (c Coedge) MarshalJSON() ([]byte, error) {
	return json.Marshal(coedgeJSON{ID: c.ID, Curve: RecordOf(c.Curve)})
}

func (c *Coedge) UnmarshalJSON(data []byte) error {
	var raw coedgeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	curve, err := raw.Curve.Curve()
	if err != nil {
		return err
	}
	c.ID = raw.ID
	c.Curve = curve
	return nil
}

// Path is an ordered chain of coedges.
type Path []Coedge

func (p Path) StartPt() Point { return p[0].Curve.StartPt() }
func (p Path) EndPt() Point   { return p[len(p)-1].Curve.EndPt() }

// Reverse returns the path walked backwards.
func (p Path) Reverse() Path {
	out := make(Path, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c.Reverse()
	}
	return out
}

func (p Path) Clone() Path {
	return append(Path(nil), p...)
}
