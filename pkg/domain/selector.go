package domain

import (
	"context"
	"errors"
	"fmt"
)

var ErrNodeTypeNotFound = errors.New("node type not found")

type SelectNodeParams struct {
	NodeType NodeType
}

// NodeSelector is the registry of node kinds. New node types are added by
// registering a creator and descriptor, not by subclassing anything.
type NodeSelector interface {
	RegisterCreator(nodeType NodeType, creator NodeCreator)
	SelectCreator(ctx context.Context, params SelectNodeParams) (NodeCreator, error)
	RegisterDescriptor(descriptor NodeDescriptor)
	Descriptor(nodeType NodeType) (NodeDescriptor, bool)
	Descriptors() []NodeDescriptor
}

type nodeSelector struct {
	creatorsByType    map[NodeType]NodeCreator
	descriptorsByType map[NodeType]NodeDescriptor
	descriptorOrder   []NodeType
}

func NewNodeSelector() NodeSelector {
	return &nodeSelector{
		creatorsByType:    make(map[NodeType]NodeCreator),
		descriptorsByType: make(map[NodeType]NodeDescriptor),
	}
}

func (s *nodeSelector) RegisterCreator(nodeType NodeType, creator NodeCreator) {
	s.creatorsByType[nodeType] = creator
}

func (s *nodeSelector) SelectCreator(ctx context.Context, params SelectNodeParams) (NodeCreator, error) {
	creator, ok := s.creatorsByType[params.NodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotFound, params.NodeType)
	}

	return creator, nil
}

func (s *nodeSelector) RegisterDescriptor(descriptor NodeDescriptor) {
	if _, exists := s.descriptorsByType[descriptor.Type]; !exists {
		s.descriptorOrder = append(s.descriptorOrder, descriptor.Type)
	}

	s.descriptorsByType[descriptor.Type] = descriptor
}

func (s *nodeSelector) Descriptor(nodeType NodeType) (NodeDescriptor, bool) {
	descriptor, ok := s.descriptorsByType[nodeType]

	return descriptor, ok
}

func (s *nodeSelector) Descriptors() []NodeDescriptor {
	descriptors := make([]NodeDescriptor, 0, len(s.descriptorOrder))

	for _, nodeType := range s.descriptorOrder {
		descriptors = append(descriptors, s.descriptorsByType[nodeType])
	}

	return descriptors
}
