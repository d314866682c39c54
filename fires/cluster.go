// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

// Cluster groups records into connected components: two records share a
// cluster when a chain of records, each within linkage meters of the next,
// joins them. Cluster ids start at 1 in order of first appearance. A linkage
// of zero or less disables clustering and resets every id to 0. It returns
// the number of clusters.
func Cluster(records []*EnrichedFireRecord, linkage float64, method DistanceMethod) int {
	for _, r := range records {
		r.ClusterID = 0
	}

	if linkage <= 0 {
		return 0
	}

	clusters := 0

	for i, seed := range records {
		if seed.ClusterID != 0 {
			continue
		}

		clusters++
		seed.ClusterID = clusters

		queue := []int{i}
		for len(queue) > 0 {
			current := records[queue[0]]
			queue = queue[1:]
			p := current.Point()

			for j, other := range records {
				if other.ClusterID != 0 {
					continue
				}

				if method.Distance(p, other.Point()) <= linkage {
					other.ClusterID = clusters
					queue = append(queue, j)
				}
			}
		}
	}

	return clusters
}
