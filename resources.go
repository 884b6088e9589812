package lace

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// HeadResource is a node destined for a document's <head>: a <link>, a
// <meta>, a <style>, a <script>. Layout components collect these from
// the page that declared them (usually through @collection bindings) and
// merge them into their own head with MergeHead.
type HeadResource struct {
	// Node is the node to merge. It's moved into the destination
	// document.
	Node *Node

	// DisableImplicitOrdering excludes this resource from the implicit
	// ordering constraint that otherwise keeps resources in the order
	// they were passed in.
	DisableImplicitOrdering bool

	// RelationCalculator, if set, is called against every other
	// resource being merged to declare explicit ordering constraints.
	// Setting it also disables the implicit ordering constraint for
	// this resource.
	RelationCalculator func(context.Context, HeadResource) ResourceRelationship
}

// graph is a directed acyclic graph of type Type. It's used to ensure
// ordering constraints of merged head resources are met.
type graph[Type any] struct {
	// nodes holds the nodes in the graph.
	nodes []Type

	// edgesTo holds graph edges, with the key being the position of the
	// node in the nodes slice that the edges are pointing to. It is a
	// list of edges indexed by what they're pointing to.
	//
	// nodes point to their dependencies and dependencies are always
	// walked first; i.e., if there's a node 1 and a node 2, and an edge
	// from 1->2, 2 will always appear before 1 when walking the graph.
	edgesTo map[int]map[int]struct{}

	// edgesFrom holds graph edges, with the key being the position of
	// the node in the nodes slice that the edges are pointing from. It
	// is a list of edges indexed by what's doing the pointing.
	edgesFrom map[int]map[int]struct{}
}

// addEdge records that from depends on to; to will be walked first.
func (g *graph[Type]) addEdge(from, to int) {
	if g.edgesFrom[from] == nil {
		g.edgesFrom[from] = map[int]struct{}{}
	}
	if g.edgesTo[to] == nil {
		g.edgesTo[to] = map[int]struct{}{}
	}
	g.edgesFrom[from][to] = struct{}{}
	g.edgesTo[to][from] = struct{}{}
}

// MergeHead merges the passed resources into the document's <head>,
// deduplicated and in a deterministic order. Duplicates (resources with
// the same serialized form) are dropped, keeping the first. Each
// resource gets an implicit dependency on the resource before it, so
// their order within the arguments is preserved unless a
// RelationCalculator says otherwise. A cycle between explicit
// constraints fails with an error wrapping ErrResourceCycle.
//
// The resources' nodes are moved into the document; handles into the
// documents they came from go stale.
func MergeHead(ctx context.Context, doc *Document, resources ...HeadResource) error {
	head, err := doc.FindFirst("head")
	if err != nil {
		return fmt.Errorf("error finding head to merge resources into: %w", err)
	}
	merge := graph[HeadResource]{
		edgesTo:   map[int]map[int]struct{}{},
		edgesFrom: map[int]map[int]struct{}{},
	}
	var keys []string
	seen := map[string]struct{}{}
	last := -1
	for _, resource := range resources {
		key, err := resource.Node.HTML()
		if err != nil {
			return err
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merge.nodes = append(merge.nodes, resource)
		keys = append(keys, key)
		if resource.RelationCalculator != nil || resource.DisableImplicitOrdering {
			continue
		}
		thisNode := len(merge.nodes) - 1
		if last >= 0 {
			merge.addEdge(thisNode, last)
		}
		last = thisNode
	}
	for pos, resource := range merge.nodes {
		if resource.RelationCalculator == nil {
			continue
		}
		for compPos, comparison := range merge.nodes {
			if compPos == pos {
				continue
			}
			switch resource.RelationCalculator(ctx, comparison) {
			case ResourceRelationshipAfter:
				merge.addEdge(pos, compPos)
			case ResourceRelationshipBefore:
				merge.addEdge(compPos, pos)
			case ResourceRelationshipNeutral:
				// do nothing, this doesn't imply dependency
			}
		}
	}
	ordered, err := walkGraph(ctx, merge, keys)
	if err != nil {
		return err
	}
	for _, resource := range ordered {
		if err := head.AppendChildren(resource.Node); err != nil {
			return err
		}
	}
	return nil
}

// walkGraph walks the graph dependencies-first, with ties broken by the
// nodes' serialized forms so the output is deterministic regardless of
// map iteration order.
func walkGraph[Type any](_ context.Context, resources graph[Type], keys []string) ([]Type, error) {
	noParents := make([]int, 0, len(resources.nodes))
	results := make([]Type, 0, len(resources.nodes))
	for pos := range resources.nodes {
		if len(resources.edgesFrom[pos]) < 1 {
			noParents = append(noParents, pos)
		}
	}
	slices.SortFunc(noParents, func(a, b int) int {
		return strings.Compare(keys[a], keys[b])
	})
	for len(noParents) > 0 {
		pos := noParents[0]
		noParents = noParents[1:]
		results = append(results, resources.nodes[pos])
		var noParentsChanged bool
		for child := range resources.edgesTo[pos] {
			delete(resources.edgesFrom[child], pos)
			delete(resources.edgesTo[pos], child)
			if len(resources.edgesFrom[child]) < 1 {
				delete(resources.edgesFrom, child)
				noParents = append(noParents, child)
				noParentsChanged = true
			}
			if len(resources.edgesTo[pos]) < 1 {
				delete(resources.edgesTo, pos)
			}
		}
		if noParentsChanged {
			slices.SortFunc(noParents, func(a, b int) int {
				return strings.Compare(keys[a], keys[b])
			})
		}
	}
	if len(resources.edgesTo) > 0 || len(resources.edgesFrom) > 0 {
		var edgesTo, edgesFrom, resourceIDs []string
		for k, v := range resources.edgesTo {
			var vals []string
			for val := range v {
				vals = append(vals, strconv.Itoa(val))
			}
			edgesTo = append(edgesTo, fmt.Sprintf("%d:%s", k, strings.Join(vals, ",")))
		}
		for k, v := range resources.edgesFrom {
			var vals []string
			for val := range v {
				vals = append(vals, strconv.Itoa(val))
			}
			edgesFrom = append(edgesFrom, fmt.Sprintf("%d:%s", k, strings.Join(vals, ",")))
		}
		for pos := range resources.nodes {
			resourceIDs = append(resourceIDs, keys[pos])
		}
		return results, fmt.Errorf("%w: edges_to=[%s], edges_from=[%s], resources=[%s]", ErrResourceCycle, strings.Join(edgesTo, "; "), strings.Join(edgesFrom, "; "), strings.Join(resourceIDs, ", "))
	}
	return results, nil
}
