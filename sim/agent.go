package sim

import "math"

// Social force model constants.
const (
	Tick              = 0.1    // seconds per simulation tick
	RelaxationTime    = 0.5    // tau, relaxation toward desired velocity
	RepulsionStrength = 2000.0 // A
	RepulsionRange    = 0.1    // B
	BodyStiffness     = 1.2e5  // k1
	SlidingFriction   = 2.4e5  // k2
	MaxSpeed          = 3.0
	MassScale         = 100.0 // mass/MassScale is the body radius
	InteractionRadius = 6.0
	SeparationFloor   = 1e-15

	DefaultDesiredSpeed = 2.0
	DefaultMass         = 50.0
)

// AgentState is one buffer of an agent's double-buffered physical state.
type AgentState struct {
	Loc          Vec2
	Velocity     Vec2
	Goal         Vec2
	V0           float64 // desired speed
	Mass         float64
	GoalIdx      int
	NumNeighbors int // diagnostic, count of agents inside InteractionRadius
}

// Agent is one person in one clone. ContextID identifies the same person in
// every clone; an Agent value lives in exactly one clone's pool.
type Agent struct {
	ContextID int
	Current   AgentState // authoritative for this tick
	Pending   AgentState // computed this tick, visible after commit
	Waypoints [NumGoals]Vec2

	// Origin is the reference this copy was taken from. Zero for agents
	// created by the root clone.
	Origin SlotRef
}

// NewAgent creates a root agent at loc heading for its first waypoint.
func NewAgent(id int, loc Vec2, waypoints [NumGoals]Vec2) Agent {
	st := AgentState{
		Loc:      loc,
		Velocity: Vec2{2, 2},
		Goal:     waypoints[0],
		V0:       DefaultDesiredSpeed,
		Mass:     DefaultMass,
	}
	return Agent{
		ContextID: id,
		Current:   st,
		Pending:   st,
		Waypoints: waypoints,
	}
}

// CopyFrom makes a private copy of src for a child clone: both state buffers
// and the waypoint route. origin records where the copy came from.
func (a *Agent) CopyFrom(src *Agent, origin SlotRef) {
	a.ContextID = src.ContextID
	a.Current = src.Current
	a.Pending = src.Pending
	a.Waypoints = src.Waypoints
	a.Origin = origin
}

// Commit publishes the pending state.
func (a *Agent) Commit() {
	a.Current = a.Pending
}

// StepEnv is everything the transition function reads besides the agent.
type StepEnv struct {
	Dim   float64
	Walls []ObstacleLine
	Gates []ObstacleLine // open gates are skipped
}

// Step computes the agent's next state from its current state, the current
// state of every neighbor, and the obstacle geometry. Only Pending is written.
func (a *Agent) Step(neighbors []*Agent, env *StepEnv) {
	cur := a.Current

	dvt := goalDrive(&cur)

	var fSum Vec2
	numNeighbors := 0
	for _, other := range neighbors {
		ds := other.Current.Loc.Dist(cur.Loc)
		if ds < InteractionRadius && ds > 0 {
			numNeighbors++
			fSum = fSum.Add(socialForce(&cur, &other.Current))
		}
	}

	for _, wall := range env.Walls {
		fSum = fSum.Add(obstacleForce(&cur, wall))
	}
	for _, gate := range env.Gates {
		if gate.IsOpen() {
			continue
		}
		fSum = fSum.Add(obstacleForce(&cur, gate))
	}

	dvt = dvt.Add(fSum.Scale(1 / cur.Mass))

	newVelo := cur.Velocity.Add(dvt.Scale(Tick))
	if dv := newVelo.Len(); dv > MaxSpeed {
		newVelo = newVelo.Scale(MaxSpeed / dv)
	}

	mint := 1.0
	for _, wall := range env.Walls {
		mint = wallImpact(&cur, wall, newVelo, mint)
	}
	for _, gate := range env.Gates {
		if gate.IsOpen() {
			continue
		}
		mint = wallImpact(&cur, gate, newVelo, mint)
	}
	newVelo = newVelo.Scale(mint)
	newLoc := cur.Loc.Add(newVelo.Scale(Tick))

	next := cur
	a.advanceGoal(newLoc, &next, roomCellSize(env.Dim))

	newLoc.X = clampToBounds(newLoc.X, env.Dim)
	newLoc.Y = clampToBounds(newLoc.Y, env.Dim)

	next.Loc = newLoc
	next.Velocity = newVelo
	next.NumNeighbors = numNeighbors
	a.Pending = next
}

// advanceGoal moves to the next waypoint once the agent has crossed the
// current one. Which axis counts is decided by where the waypoint sits inside
// its room cell: a waypoint on a horizontal room boundary is crossed in y, one
// on a vertical boundary in x. The index only grows and stops at the last
// waypoint.
func (a *Agent) advanceGoal(newLoc Vec2, next *AgentState, cell int) {
	if next.GoalIdx+1 >= NumGoals || cell <= 0 {
		return
	}
	g1 := a.Waypoints[next.GoalIdx]
	x := int(g1.X) % cell
	y := int(g1.Y) % cell

	if (x > y && newLoc.Y >= g1.Y) || (x < y && newLoc.X >= g1.X) {
		next.GoalIdx++
		next.Goal = a.Waypoints[next.GoalIdx]
	}
}

func roomCellSize(dim float64) int {
	return int(math.Floor(dim * roomFrac))
}
