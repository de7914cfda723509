package version

// ExpandCaret converts a caret requirement such as ^1.2.3 into the comparator
// set >=1.2.3,<2. The upper bound bumps the first non-zero release segment;
// an all-zero release bumps its last segment.
func ExpandCaret(versionText string) (Constraint, error) {
	parsedVersion, parseError := Parse(versionText)
	if parseError != nil {
		return Constraint{}, parseError
	}

	return NewConstraint(
		Comparator{Operator: OperatorGreaterOrEqual, Version: parsedVersion},
		Comparator{Operator: OperatorLess, Version: caretUpperBound(parsedVersion)},
	), nil
}

// ExpandTilde converts a tilde requirement such as ~1.2.3 into the comparator
// set >=1.2.3,<1.3. A single-segment requirement bumps the major segment.
func ExpandTilde(versionText string) (Constraint, error) {
	parsedVersion, parseError := Parse(versionText)
	if parseError != nil {
		return Constraint{}, parseError
	}

	return NewConstraint(
		Comparator{Operator: OperatorGreaterOrEqual, Version: parsedVersion},
		Comparator{Operator: OperatorLess, Version: tildeUpperBound(parsedVersion)},
	), nil
}

func caretUpperBound(parsedVersion Version) Version {
	firstNonZeroIndex := len(parsedVersion.Release) - 1
	for segmentIndex, segmentValue := range parsedVersion.Release {
		if segmentValue != 0 {
			firstNonZeroIndex = segmentIndex
			break
		}
	}

	bumpedSegments := make([]int, firstNonZeroIndex+1)
	copy(bumpedSegments, parsedVersion.Release[:firstNonZeroIndex+1])
	bumpedSegments[firstNonZeroIndex]++
	upper := releaseVersion(bumpedSegments)
	upper.Epoch = parsedVersion.Epoch
	return upper
}

func tildeUpperBound(parsedVersion Version) Version {
	if len(parsedVersion.Release) < 2 {
		return releasePrefixUpperBound(parsedVersion)
	}

	truncatedSegments := []int{parsedVersion.Release[0], parsedVersion.Release[1] + 1}
	upper := releaseVersion(truncatedSegments)
	upper.Epoch = parsedVersion.Epoch
	return upper
}
