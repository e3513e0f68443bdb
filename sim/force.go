package sim

import "math"

// goalDrive is the acceleration that relaxes the velocity toward the desired
// speed along the direction to the current goal. An agent standing on its goal
// only relaxes toward rest.
func goalDrive(st *AgentState) Vec2 {
	var desired Vec2
	if d0 := st.Loc.Dist(st.Goal); d0 > 0 {
		desired = st.Goal.Sub(st.Loc).Scale(st.V0 / d0)
	}
	return desired.Sub(st.Velocity).Scale(1 / RelaxationTime)
}

// socialForce is the repulsion exerted on me by other: exponential
// short-range term, body compression once the bodies overlap, and tangential
// sliding friction on the relative velocity.
func socialForce(me, other *AgentState) Vec2 {
	d := SeparationFloor + me.Loc.Dist(other.Loc)
	dDelta := me.Mass/MassScale + other.Mass/MassScale - d
	fExp := RepulsionStrength * math.Exp(dDelta/RepulsionRange)
	fKg := 0.0
	if dDelta >= 0 {
		fKg = BodyStiffness * dDelta
	}
	nij := me.Loc.Sub(other.Loc).Scale(1 / d)
	f := nij.Scale(fExp + fKg)

	if dDelta > 0 {
		tij := Vec2{-nij.Y, nij.X}
		vijDelta := other.Velocity.Sub(me.Velocity).Dot(tij)
		fk := SlidingFriction * dDelta * vijDelta
		f = f.Add(Vec2{fk * tij.X, fk * tij.Y})
	}
	return f
}

// obstacleForce applies the same repulsion against the nearest point of a
// wall or closed gate. An agent sitting exactly on the segment gets no force
// because the normal is undefined.
func obstacleForce(me *AgentState, wall ObstacleLine) Vec2 {
	diw, contact := wall.DistanceToPoint(me.Loc)
	if diw == 0 {
		return Vec2{}
	}
	niw := me.Loc.Sub(contact).Scale(1 / diw)
	drw := me.Mass/MassScale - diw
	fiw := RepulsionStrength * math.Exp(drw/RepulsionRange)
	if drw > 0 {
		fiw += BodyStiffness * drw
	}
	f := niw.Scale(fiw)

	if drw > 0 {
		tiw := Vec2{-niw.Y, niw.X}
		fKg := SlidingFriction * drw * me.Velocity.Dot(tiw)
		f = f.Sub(tiw.Scale(fKg))
	}
	return f
}

// wallImpact tests the half-tick lookahead of newVelo against wall and returns
// the smaller of mint and the fraction of the tick at which the crossing
// happens.
func wallImpact(me *AgentState, wall ObstacleLine, newVelo Vec2, mint float64) float64 {
	loc := me.Loc
	end := loc.Add(newVelo.Scale(0.5 * Tick))
	cross, ok := wall.Intersect(loc, end)
	if !ok {
		return mint
	}
	var tt float64
	if math.Abs(cross.X-loc.X) > 0 {
		tt = (cross.X - loc.X) / (newVelo.X * Tick)
	} else {
		tt = (cross.Y - loc.Y) / (newVelo.Y*Tick + 1e-20)
	}
	if tt < mint {
		return tt
	}
	return mint
}
