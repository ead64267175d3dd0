// Package weights models the bot heuristic weight schema and its conversion
// to the flat wire naming the authority speaks.
package weights

import "strconv"

// CardValues holds one weight per card value 1..9 (index 0 unused).
type CardValues [10]int

// Weights is the semantic schema used throughout the client.
type Weights struct {
	// Basic move
	LegalMove int

	// Winning
	Win int

	// Threat: three opponent cards aligned
	DetectThreat3     int
	OverwriteThreat   int
	BlockThreatMiddle int
	BlockThreatEdge   int
	BlockOpponentPath int
	ThreatCardValue   CardValues

	// Potential threat: adjacent but fewer than three
	DetectPotentialThreat    int
	OverwritePotentialThreat int
	BlockPotentialPath       int
	PotentialThreatCardValue CardValues

	// Own strategy
	Create2InRow int
	Create3InRow int

	// Card strategy
	PlaySmallestCard int
	PlaceNearOwnCard int
}

// Wire is the flat record exchanged with the authority.
type Wire struct {
	WWin            int `json:"w_win"`
	WThreat         int `json:"w_threat"`
	WReplaceValue   int `json:"w_replace_value"`
	WBlockPath      int `json:"w_block_path"`
	WBuildAlignment int `json:"w_build_alignment"`
	WCardCost       int `json:"w_card_cost"`
	LegalMove       int `json:"legal_move"`

	ReplaceValuesThreat    map[string]int `json:"replace_values_threat"`
	ReplaceValuesPotential map[string]int `json:"replace_values_potential"`

	ReplaceWhenThreat int `json:"replace_when_threat"`
	ReplacePotential  int `json:"replace_potential"`
	ReplacePosMiddle  int `json:"replace_pos_middle"`
	ReplacePosSide    int `json:"replace_pos_side"`
	BlockWhenThreat   int `json:"block_when_threat"`
	BlockPotential    int `json:"block_potential"`
	BuildAlignment2   int `json:"build_alignment_2"`
	BuildAlignment3   int `json:"build_alignment_3"`
	PlaySmallestCard  int `json:"play_smallest_card"`
	KeepNearCard      int `json:"keep_near_card"`
}

// Default returns the stock weight set.
func Default() Weights {
	w := Weights{
		LegalMove:                30,
		Win:                      10000,
		DetectThreat3:            200,
		OverwriteThreat:          200,
		BlockThreatMiddle:        75,
		BlockThreatEdge:          50,
		BlockOpponentPath:        100,
		DetectPotentialThreat:    100,
		OverwritePotentialThreat: 125,
		BlockPotentialPath:       70,
		Create2InRow:             50,
		Create3InRow:             100,
		PlaySmallestCard:         60,
		PlaceNearOwnCard:         60,
	}
	for v := 1; v <= 9; v++ {
		w.ThreatCardValue[v] = threatDefault(v)
		w.PotentialThreatCardValue[v] = potentialDefault(v)
	}
	return w
}

// Threat replacement defaults scale 20..100 linearly over card values 1..9;
// potential-threat defaults mirror them in reverse.
func threatDefault(card int) int    { return 10 + 10*card }
func potentialDefault(card int) int { return 110 - 10*card }

// ToWire flattens the semantic schema into the authority's naming.
func (w Weights) ToWire() Wire {
	threat := make(map[string]int, 9)
	potential := make(map[string]int, 9)
	for v := 1; v <= 9; v++ {
		threat[strconv.Itoa(v)] = w.ThreatCardValue[v]
		potential[strconv.Itoa(v)] = w.PotentialThreatCardValue[v]
	}
	return Wire{
		WWin:                   w.Win,
		WThreat:                w.DetectThreat3,
		WReplaceValue:          w.OverwriteThreat,
		WBlockPath:             w.BlockOpponentPath,
		WBuildAlignment:        w.Create3InRow,
		WCardCost:              w.PlaySmallestCard,
		LegalMove:              w.LegalMove,
		ReplaceValuesThreat:    threat,
		ReplaceValuesPotential: potential,
		ReplaceWhenThreat:      w.OverwriteThreat,
		ReplacePotential:       w.OverwritePotentialThreat,
		ReplacePosMiddle:       w.BlockThreatMiddle,
		ReplacePosSide:         w.BlockThreatEdge,
		BlockWhenThreat:        w.BlockOpponentPath,
		BlockPotential:         w.BlockPotentialPath,
		BuildAlignment2:        w.Create2InRow,
		BuildAlignment3:        w.Create3InRow,
		PlaySmallestCard:       w.PlaySmallestCard,
		KeepNearCard:           w.PlaceNearOwnCard,
	}
}

// FromWire lifts a flat record back into the semantic schema, substituting
// the documented defaults for any per-card value the authority left out.
func FromWire(in Wire) Weights {
	w := Weights{
		LegalMove:                in.LegalMove,
		Win:                      in.WWin,
		DetectThreat3:            in.WThreat,
		OverwriteThreat:          in.ReplaceWhenThreat,
		BlockThreatMiddle:        in.ReplacePosMiddle,
		BlockThreatEdge:          in.ReplacePosSide,
		BlockOpponentPath:        in.BlockWhenThreat,
		DetectPotentialThreat:    in.WThreat / 2, // estimate, not on the wire
		OverwritePotentialThreat: in.ReplacePotential,
		BlockPotentialPath:       in.BlockPotential,
		Create2InRow:             in.BuildAlignment2,
		Create3InRow:             in.BuildAlignment3,
		PlaySmallestCard:         in.PlaySmallestCard,
		PlaceNearOwnCard:         in.KeepNearCard,
	}
	for v := 1; v <= 9; v++ {
		key := strconv.Itoa(v)
		if val, ok := in.ReplaceValuesThreat[key]; ok && val != 0 {
			w.ThreatCardValue[v] = val
		} else {
			w.ThreatCardValue[v] = threatDefault(v)
		}
		if val, ok := in.ReplaceValuesPotential[key]; ok && val != 0 {
			w.PotentialThreatCardValue[v] = val
		} else {
			w.PotentialThreatCardValue[v] = potentialDefault(v)
		}
	}
	return w
}
